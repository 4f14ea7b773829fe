package preview_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
	"github.com/tartampluch/go-birthday-reminder/internal/engine"
	"github.com/tartampluch/go-birthday-reminder/internal/locale"
	"github.com/tartampluch/go-birthday-reminder/internal/notify"
	"github.com/tartampluch/go-birthday-reminder/internal/preview"
	"github.com/tartampluch/go-birthday-reminder/internal/server"
)

var today = time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)

func newPreviewer(t *testing.T) (*preview.Previewer, *[]string) {
	t.Helper()
	templates := fstest.MapFS{
		"birthday.html": {Data: []byte(`<h1>{{.Name}}</h1><p>{{.Zodiac}} {{.LunarMonth}}{{.LunarDay}} {{.LunarFestival}}</p>`)},
	}
	p := preview.New(notify.NewRenderer(templates, ""), locale.New("zh"), engine.FixedClock{Time: today})
	p.Dir = filepath.Join(t.TempDir(), config.PreviewDir)

	var opened []string
	p.Open = func(path string) error {
		opened = append(opened, path)
		return nil
	}
	return p, &opened
}

func TestPreview_BuildAndSave(t *testing.T) {
	p, opened := newPreviewer(t)

	page, err := p.Build("")
	require.NoError(t, err)
	assert.Equal(t, "<h1>测试用户</h1><p>马 正月十五 元宵节</p>", page.Content.HTML)
	assert.Contains(t, string(page.Calendar), "DTSTART;VALUE=DATE:20240210")

	path, err := p.Save(page)
	require.NoError(t, err)
	assert.Equal(t, "preview_测试用户_20240210.html", filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, page.Content.HTML, string(data))

	require.NoError(t, p.Show(path))
	require.Len(t, *opened, 1)
	assert.True(t, filepath.IsAbs((*opened)[0]))
}

func TestPreview_Errors(t *testing.T) {
	p, _ := newPreviewer(t)

	_, err := p.Build("missing.html")
	assert.ErrorIs(t, err, notify.ErrTemplateNotFound)

	p.Open = func(string) error { return errors.New("no display") }
	err = p.Show("x.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), config.ErrBrowserOpen)

	var browsed string
	p.Browse = func(url string) error {
		browsed = url
		return nil
	}
	require.NoError(t, p.ShowURL("http://127.0.0.1:18098/"))
	assert.Equal(t, "http://127.0.0.1:18098/", browsed)
}

func TestPreview_Serve(t *testing.T) {
	p, _ := newPreviewer(t)
	page, err := p.Build("")
	require.NoError(t, err)

	srv := server.NewPreviewServer("18098")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx, srv, page) }()

	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL() + config.ICalFileName)
		if err != nil {
			return false
		}
		defer func() { _ = resp.Body.Close() }()
		body, _ = io.ReadAll(resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 50*time.Millisecond)
	assert.Contains(t, string(body), "BEGIN:VCALENDAR")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("preview server did not stop")
	}
}
