// Package destination compiles storage path templates for the file-system repository.
package destination

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/JakeFAU/scrapper/internal/crawler"
	"github.com/JakeFAU/scrapper/internal/storage"
)

// Functions whose output depends on the clock, randomness or the environment.
// Paths must be derivable from the resource alone.
var excludedFuncs = []string{
	"now", "date", "dateInZone", "date_in_zone", "dateModify", "date_modify",
	"ago", "duration", "durationRound", "htmlDate", "htmlDateInZone",
	"unixEpoch", "toDate", "mustToDate", "mustDateModify",
	"randAlphaNum", "randAlpha", "randAscii", "randNumeric", "randBytes", "randInt",
	"uuidv4", "shuffle",
	"env", "expandenv",
	"genPrivateKey", "genCA", "genCAWithKey", "genSelfSignedCert", "genSelfSignedCertWithKey",
	"genSignedCert", "genSignedCertWithKey", "derivePassword", "encryptAES", "decryptAES",
	"getHostByName",
}

// URLData is the template view of a URL.
type URLData struct {
	URL      string
	Scheme   string
	Host     string
	Path     string
	Dir      string
	FileName string
	// Ext includes the leading dot.
	Ext      string
	Segments []string
	Query    url.Values
}

// Data is the value templates are executed against.
type Data struct {
	Page          URLData
	Resource      URLData
	PageIndex     int
	ResourceIndex int
}

// Compiler renders relative storage paths for resources.
type Compiler struct {
	expr string
	tmpl *template.Template
}

// Compile parses expr once. Errors wrap crawler.ErrConfiguration.
func Compile(expr string) (*Compiler, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("%w: destination expression is empty", crawler.ErrConfiguration)
	}
	funcs := sprig.TxtFuncMap()
	for _, name := range excludedFuncs {
		delete(funcs, name)
	}
	tmpl, err := template.New("destination").Option("missingkey=error").Funcs(funcs).Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: destination expression: %v", crawler.ErrConfiguration, err)
	}
	return &Compiler{expr: expr, tmpl: tmpl}, nil
}

// String returns the source expression.
func (c *Compiler) String() string { return c.expr }

// Path renders the path for info, normalized relative to the repository root.
// Leading slashes are dropped; empty results and ".." segments are rejected.
func (c *Compiler) Path(info crawler.ResourceInfo) (string, error) {
	data := NewData(info)
	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render destination: %w", err)
	}
	rendered := buf.String()
	out, err := storage.Normalize(rendered)
	if err != nil {
		return "", fmt.Errorf("destination %q: %w", rendered, err)
	}
	return out, nil
}

// NewData builds the template view of info.
func NewData(info crawler.ResourceInfo) Data {
	d := Data{PageIndex: info.PageIndex, ResourceIndex: info.ResourceIndex}
	if info.Page != nil {
		d.Page = newURLData(info.Page.URI())
	}
	if info.ResourceURL != nil {
		d.Resource = newURLData(info.ResourceURL)
	}
	return d
}

func newURLData(u *url.URL) URLData {
	p := u.Path
	if p == "" {
		p = "/"
	}
	var segments []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	file := ""
	if !strings.HasSuffix(p, "/") {
		file = path.Base(p)
	}
	dir := strings.Trim(path.Dir(p), "/")
	if strings.HasSuffix(p, "/") {
		dir = strings.Trim(p, "/")
	}
	return URLData{
		URL:      u.String(),
		Scheme:   u.Scheme,
		Host:     u.Host,
		Path:     p,
		Dir:      dir,
		FileName: file,
		Ext:      path.Ext(file),
		Segments: segments,
		Query:    u.Query(),
	}
}
