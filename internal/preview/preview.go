package preview

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/tartampluch/go-birthday-reminder/internal/config"
	"github.com/tartampluch/go-birthday-reminder/internal/engine"
	"github.com/tartampluch/go-birthday-reminder/internal/locale"
	"github.com/tartampluch/go-birthday-reminder/internal/notify"
	"github.com/tartampluch/go-birthday-reminder/internal/server"
)

// SampleRecipient is the fixed person used to preview templates.
var SampleRecipient = config.Recipient{
	Name:          "测试用户",
	Email:         "test@example.com",
	SolarBirthday: "1990-01-01",
	LunarBirthday: "1990-02-15",
	ReminderDays:  3,
	TemplateFile:  config.DefaultTemplateFile,
}

// SampleDetails returns the fixed check result used to preview templates,
// dated today so the attached calendar event is meaningful.
func SampleDetails(today time.Time) engine.Details {
	return engine.Details{
		SolarMatch:    true,
		LunarMatch:    false,
		DaysUntil:     0,
		Age:           34,
		Date:          time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location()),
		Zodiac:        "马",
		GanZhiYear:    "庚午",
		GanZhiMonth:   "戊寅",
		GanZhiDay:     "甲子",
		GanZhiHour:    "甲子",
		LunarMonth:    "正月",
		LunarDay:      "十五",
		LunarFestival: "元宵节",
		SolarFestival: "元旦",
		SolarTerm:     "立春",
		Weekday:       "星期一",
		Constellation: "摩羯座",
	}
}

// Page is a rendered preview: the email body and the matching calendar.
type Page struct {
	Recipient config.Recipient
	Content   notify.Content
	Calendar  []byte
}

// Previewer renders the sample data through a template without sending anything.
type Previewer struct {
	Renderer   *notify.Renderer
	Translator *locale.Translator
	Clock      engine.Clock
	// Dir receives the preview files.
	Dir string
	// Open shows a saved file to the user. Defaults to the system browser.
	Open func(path string) error
	// Browse opens a URL, used with the preview server.
	Browse func(url string) error
}

// New creates a Previewer writing to config.PreviewDir.
func New(renderer *notify.Renderer, tr *locale.Translator, clock engine.Clock) *Previewer {
	return &Previewer{
		Renderer:   renderer,
		Translator: tr,
		Clock:      clock,
		Dir:        config.PreviewDir,
		Open:       browser.OpenFile,
		Browse:     browser.OpenURL,
	}
}

// Build renders template (or the default template) with the sample data.
func (p *Previewer) Build(template string) (Page, error) {
	if template == "" {
		template = SampleRecipient.TemplateFile
	}
	r := SampleRecipient
	r.TemplateFile = template

	now := p.Clock.Now()
	d := SampleDetails(now)

	c, err := p.Renderer.Render(template, notify.TemplateData{Name: r.Name, Details: d})
	if err != nil {
		return Page{}, err
	}

	match := engine.Match{Recipient: r, IsBirthday: true, Details: d}
	ics, err := engine.BuildCalendar(now, []engine.Match{match}, func(m engine.Match) string {
		return notify.EventSummary(p.Translator, m.Recipient.Name, m.Details.Age)
	})
	if err != nil {
		return Page{}, err
	}
	return Page{Recipient: r, Content: c, Calendar: ics}, nil
}

// Save writes the page to Dir/preview_<name>_<YYYYMMDD>.html and returns the path.
func (p *Previewer) Save(page Page) (string, error) {
	if err := os.MkdirAll(p.Dir, config.DirPermUserRWX); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrPreviewWrite, err)
	}

	name := fmt.Sprintf(config.PreviewFileFormat, page.Recipient.Name, p.Clock.Now().Format(config.PreviewDateStamp))
	path := filepath.Join(p.Dir, name)
	if err := os.WriteFile(path, []byte(page.Content.HTML), config.FilePermPublic); err != nil {
		return "", fmt.Errorf("%s: %w", config.ErrPreviewWrite, err)
	}

	log.Info().
		Str(config.LogKeyComponent, config.CompPreview).
		Str(config.LogKeyFile, path).
		Msg(config.MsgPreviewSaved)
	return path, nil
}

// Show opens a saved preview. Failing to launch a browser is not fatal for
// callers that already printed the path, so the error is only returned.
func (p *Previewer) Show(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if err := p.Open(abs); err != nil {
		return fmt.Errorf("%s: %w", config.ErrBrowserOpen, err)
	}
	return nil
}

// ShowURL opens url in the browser.
func (p *Previewer) ShowURL(url string) error {
	if err := p.Browse(url); err != nil {
		return fmt.Errorf("%s: %w", config.ErrBrowserOpen, err)
	}
	return nil
}

// Serve publishes the page and its calendar on srv and blocks until ctx is done.
func (p *Previewer) Serve(ctx context.Context, srv *server.PreviewServer, page Page) error {
	srv.Publish(config.RouteRoot, config.MimeTextHTML, []byte(page.Content.HTML))
	srv.Publish(config.RouteCalendar, config.MimeTextCalendar, page.Calendar)
	return srv.Start(ctx)
}
