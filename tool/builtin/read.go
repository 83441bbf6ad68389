package builtin

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/sweetpotato0/pinecone/sandbox"
	"github.com/sweetpotato0/pinecone/tool"
)

// ReadToolName is the registered name of the file reader
const ReadToolName = "read"

// ReadConfig configures the read tool
type ReadConfig struct {
	Sandbox  *sandbox.Sandbox
	MaxChars int
}

type readArgs struct {
	Documents []string `json:"documents" jsonschema:"required,description=File paths relative to the workspace root or absolute paths inside it"`
}

type readTool struct {
	sandbox  *sandbox.Sandbox
	maxChars int
}

// NewRead builds the confined multi-file reader.
func NewRead(cfg ReadConfig) (*tool.Tool, error) {
	if cfg.Sandbox == nil {
		return nil, fmt.Errorf("read tool: sandbox is required")
	}
	rt := &readTool{sandbox: cfg.Sandbox, maxChars: cfg.MaxChars}
	if rt.maxChars <= 0 {
		rt.maxChars = defaultMaxChars
	}

	return &tool.Tool{
		Name: ReadToolName,
		Description: "Read a list of file paths and return their content in <path>content</path> format. " +
			`Arguments: {"documents": ["README.md"]}.`,
		InputSchema: tool.MustSchemaFor[readArgs](),
		Handler:     rt.run,
	}, nil
}

func (r *readTool) run(ctx context.Context, args map[string]interface{}) (string, error) {
	var raw any
	for _, key := range []string{"documents", "paths", "path"} {
		if v, ok := args[key]; ok {
			raw = v
			break
		}
	}
	docs, err := stringList(raw)
	if err != nil {
		return "", tool.Errorf(nil, "documents: %v", err)
	}
	if len(docs) == 0 {
		return "", tool.Errorf(nil, "documents is required")
	}

	// Containment is checked for the whole batch before reading anything.
	resolved := make([]string, len(docs))
	for i, doc := range docs {
		p, err := r.sandbox.Resolve(doc)
		if err != nil {
			return "", tool.Errorf(kindOf(err), "access outside workspace denied for %s", doc)
		}
		resolved[i] = p
	}

	chunks := make([]string, 0, len(docs))
	for i, path := range resolved {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		chunks = append(chunks, fmt.Sprintf("<%s>%s</%s>", path, r.readOne(docs[i], path), path))
	}
	return strings.Join(chunks, "\n"), nil
}

func (r *readTool) readOne(name, path string) string {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Sprintf("[error: %s does not exist]", name)
		}
		return fmt.Sprintf("[error: %v]", err)
	}
	if info.IsDir() {
		return fmt.Sprintf("[error: %s is a directory]", name)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Sprintf("[error: %v]", err)
	}
	defer f.Close()

	// maxChars runes fit in 4*maxChars bytes; one more byte tells us the file is longer.
	limit := int64(r.maxChars)*utf8.UTFMax + 1
	data, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		return fmt.Sprintf("[error: %v]", err)
	}
	content, cut := truncate(strings.ToValidUTF8(string(data), ""), r.maxChars)
	if int64(len(data)) == limit {
		cut = true
	}
	if cut {
		content += "\n[truncated]"
	}
	return content
}
