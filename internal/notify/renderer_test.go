package notify_test

import (
	"os"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/go-birthday-reminder/internal/engine"
	"github.com/tartampluch/go-birthday-reminder/internal/notify"
)

func templatesFS() fstest.MapFS {
	return fstest.MapFS{
		"birthday.html": {Data: []byte(`<html><head><title>生日</title></head><body>
<h1>亲爱的{{.Name}}</h1>
{{if eq .DaysUntil 0}}<p>今天是您的生日</p>{{else}}<p>{{.DaysUntil}}天后是您的生日</p>{{end}}
<p>生肖：{{.Zodiac}} &amp; 星座：{{.Constellation}}</p>
</body></html>`)},
		"card.md": {Data: []byte(`---
subject: "{{.Name}} turns {{.Age}}"
---
# Happy birthday, {{.Name}}!

Zodiac: **{{.Zodiac}}**
`)},
		"layout.html":  {Data: []byte(`<html><body><div class="mail">{{.Content}}</div></body></html>`)},
		"broken.html":  {Data: []byte(`{{if}}`)},
		"missing.html": {Data: []byte(`{{.NoSuchField}}`)},
	}
}

func sampleDetails() engine.Details {
	return engine.Details{SolarMatch: true, DaysUntil: 2, Age: 34, Zodiac: "马", Constellation: "摩羯座"}
}

func TestRenderer_HTML(t *testing.T) {
	r := notify.NewRenderer(templatesFS(), "")

	c, err := r.Render("birthday.html", notify.TemplateData{Name: "<b>张三</b>", Details: sampleDetails()})
	require.NoError(t, err)

	assert.Contains(t, c.HTML, "亲爱的&lt;b&gt;张三&lt;/b&gt;", "html/template escapes data")
	assert.Contains(t, c.HTML, "2天后是您的生日")
	assert.Empty(t, c.Subject)
	assert.Equal(t, sampleDetails(), c.Details)

	assert.NotContains(t, c.Text, "<h1>")
	assert.Contains(t, c.Text, "生肖：马 & 星座：摩羯座")
}

func TestRenderer_Markdown(t *testing.T) {
	r := notify.NewRenderer(templatesFS(), "layout.html")

	c, err := r.Render("card.md", notify.TemplateData{Name: "Ann", Details: sampleDetails()})
	require.NoError(t, err)

	assert.Equal(t, "Ann turns 34", c.Subject)
	assert.Contains(t, c.HTML, `<div class="mail"><h1>Happy birthday, Ann!</h1>`)
	assert.Contains(t, c.HTML, "<strong>马</strong>")
	assert.Contains(t, c.Text, "Happy birthday, Ann!")
}

func TestRenderer_Errors(t *testing.T) {
	tests := []struct {
		name     string
		layout   string
		template string
		want     error
	}{
		{"missing template", "", "nope.html", notify.ErrTemplateNotFound},
		{"parse error", "", "broken.html", notify.ErrRenderFailed},
		{"execution error", "", "missing.html", notify.ErrRenderFailed},
		{"missing layout", "nolayout.html", "card.md", notify.ErrLayoutNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := notify.NewRenderer(templatesFS(), tt.layout)
			_, err := r.Render(tt.template, notify.TemplateData{Name: "x"})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRenderer_CachesParsedTemplates(t *testing.T) {
	fsys := templatesFS()
	r := notify.NewRenderer(fsys, "")

	first, err := r.Render("birthday.html", notify.TemplateData{Name: "A", Details: sampleDetails()})
	require.NoError(t, err)

	delete(fsys, "birthday.html")
	second, err := r.Render("birthday.html", notify.TemplateData{Name: "A", Details: sampleDetails()})
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRenderer_ShippedTemplates(t *testing.T) {
	r := notify.NewRenderer(os.DirFS("../../templates"), "")
	d := sampleDetails()
	d.LunarMonth, d.LunarDay, d.SolarTerm = "正月", "十五", "立春"

	c, err := r.Render("birthday.html", notify.TemplateData{Name: "张三", Details: d})
	require.NoError(t, err)
	assert.Contains(t, c.HTML, "亲爱的 张三")
	assert.Contains(t, c.HTML, "距离您的生日还有 2 天")
	assert.Contains(t, c.Text, "农历正月十五")

	c, err = r.Render("birthday_en.md", notify.TemplateData{Name: "Ann", Details: d})
	require.NoError(t, err)
	assert.Equal(t, "Happy birthday, Ann!", c.Subject)
	assert.Contains(t, c.HTML, "<table>")
	assert.Contains(t, c.HTML, "<strong>2 days</strong>")
	assert.Contains(t, c.HTML, "<td>立春</td>")
}
