package log

import (
	"bytes"
	"os"
	"path"
	"strings"
	"testing"

	"pmflow/pkg/contextx"

	"github.com/stretchr/testify/assert"
)

func TestGetLogger_Fields(t *testing.T) {
	asserter := assert.New(t)

	if !asserter.NoError(Initialize(Config{Level: "debug"})) {
		return
	}
	buf := &bytes.Buffer{}
	SetOutput(buf)

	ctx := contextx.NewContext()
	ctx.Set(contextx.RequestIDKey, "req-7")
	ctx.Set(contextx.ProcessKey, "pr-9")
	Infof(ctx, "token %s created", "tk-1")

	line := buf.String()
	asserter.True(strings.HasSuffix(line, "\n"))
	asserter.Contains(line, "[pmflow] [INFO] [req-7 pr-9] token tk-1 created")

	buf.Reset()
	Debug(map[string]interface{}{contextx.ProcessKey: "pr-1"}, "map context")
	asserter.Contains(buf.String(), "[- pr-1] map context")
}

func TestInitialize_File(t *testing.T) {
	asserter := assert.New(t)

	dir := path.Join(t.TempDir(), "logs")
	if asserter.NoError(Initialize(Config{DirPath: dir, Format: "{{.levelname}} {{.message}}"})) {
		Warn(nil, "written to file")
		content, err := os.ReadFile(path.Join(dir, "pmflow.log"))
		if asserter.NoError(err) {
			asserter.Equal("WARNING written to file\n", string(content))
		}
	}

	asserter.Error(Initialize(Config{Level: "loud"}))
	asserter.NoError(Initialize(Config{}))
}
