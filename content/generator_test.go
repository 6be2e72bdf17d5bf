package content

import (
	"context"
	"encoding/json"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttputil"

	"github.com/wfunc/analogyarena/models"
)

func TestParseContent(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		raw  string
		ok   bool
	}{
		{"plain riddle", ModeRiddle, `{"riddle":"I have keys","answer":"Keyboard"}`, true},
		{"fenced word", ModeWord, "```json\n{\"word\":\"Entropy\",\"hint\":\"disorder\"}\n```", true},
		{"chatter around analogy", ModeAnalogy, `Sure! {"analogy":"A window in your pocket","answer":"Phone"} Enjoy.`, true},
		{"missing field", ModeRiddle, `{"riddle":"no answer"}`, false},
		{"wrong shape", ModeWord, `{"riddle":"x","answer":"y"}`, false},
		{"not json", ModeAnalogy, `I cannot help with that.`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseContent(tt.mode, []byte(tt.raw))
			if !tt.ok {
				assert.ErrorIs(t, err, ErrNoContent)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.mode, g.Mode)
		})
	}
}

func TestGenerated_Conversions(t *testing.T) {
	g, err := ParseContent(ModeRiddle, []byte(`{"riddle":"I fly without wings","answer":" Cloud "}`))
	require.NoError(t, err)
	q, ok := g.RiddleQuestion("gen-1", models.Easy)
	require.True(t, ok)
	assert.Equal(t, "Cloud", q.CorrectAnswer)
	_, ok = g.WordPuzzle(1)
	assert.False(t, ok)

	a, err := ParseContent(ModeAnalogy, []byte(`{"analogy":"pocket window","answer":"Phone"}`))
	require.NoError(t, err)
	p, ok := a.WordPuzzle(9)
	require.True(t, ok)
	assert.Equal(t, 9, p.Number)
	assert.Equal(t, "Phone", p.Answer)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Analogy ")
	require.NoError(t, err)
	assert.Equal(t, ModeAnalogy, m)
	_, err = ParseMode("poem")
	assert.Error(t, err)
}

func newInmemoryClient(t *testing.T, handler fasthttp.RequestHandler) *Client {
	t.Helper()
	ln := fasthttputil.NewInmemoryListener()
	t.Cleanup(func() { ln.Close() })
	go fasthttp.Serve(ln, handler) //nolint:errcheck

	hc := &fasthttp.Client{Dial: func(string) (net.Conn, error) { return ln.Dial() }}
	return NewClient("http://generator.local/", WithHTTPClient(hc), WithAPIKey("secret"))
}

func TestClient_Generate(t *testing.T) {
	var got GenerateRequest
	var auth string
	c := newInmemoryClient(t, func(ctx *fasthttp.RequestCtx) {
		auth = string(ctx.Request.Header.Peek("Authorization"))
		_ = json.Unmarshal(ctx.PostBody(), &got)
		ctx.SetContentType("text/plain")
		ctx.SetBodyString("```json\n{\"analogy\":\"A pocket window\",\"answer\":\"Phone\"}\n```")
	})

	g, err := c.Generate(context.Background(), ModeAnalogy, "Technology")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, ModeAnalogy, got.Mode)
	assert.Equal(t, "Technology", got.Topic)
	assert.Equal(t, "Technology", g.Topic)
	require.NotNil(t, g.Analogy)
	assert.Equal(t, "Phone", g.Analogy.Answer)
}

func TestClient_FailuresAreNoContent(t *testing.T) {
	c := newInmemoryClient(t, func(ctx *fasthttp.RequestCtx) {
		if string(ctx.Path()) == "/generate" {
			ctx.SetStatusCode(fasthttp.StatusBadGateway)
			ctx.SetBodyString("upstream down")
		}
	})
	_, err := c.Generate(context.Background(), ModeRiddle, "")
	assert.ErrorIs(t, err, ErrNoContent)

	garbage := newInmemoryClient(t, func(ctx *fasthttp.RequestCtx) {
		ctx.SetBodyString("no json here")
	})
	_, err = garbage.Generate(context.Background(), ModeRiddle, "")
	assert.ErrorIs(t, err, ErrNoContent)
}
