package assets

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	minjs "github.com/tdewolff/minify/v2/js"
	minsvg "github.com/tdewolff/minify/v2/svg"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

// HTMLOptions controls how a page template is rendered
type HTMLOptions struct {
	// Attributes to resolve, written as "tag:attr"
	Attrs []string
	// Scripts appended to the end of <body>
	Scripts []string
	// Stylesheets appended to <head>
	Stylesheets []string
	// Title used when the template has none
	Title string
	Minify bool
	// Resolve rewrites a local reference found in Attrs. Returning ok false
	// leaves the attribute untouched.
	Resolve func(ref string) (string, bool, error)
}

// RenderHTML injects assets into a page template and optionally minifies it
func RenderHTML(template []byte, opts HTMLOptions) ([]byte, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(template))
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	if opts.Resolve != nil {
		for _, spec := range opts.Attrs {
			tag, attr, ok := strings.Cut(spec, ":")
			if !ok {
				return nil, fmt.Errorf("invalid attribute %q, expected tag:attr", spec)
			}

			var resolveErr error
			doc.Find(tag).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
				ref, exists := sel.Attr(attr)
				if !exists || !isLocalReference(ref) {
					return true
				}
				resolved, ok, err := opts.Resolve(ref)
				if err != nil {
					resolveErr = err
					return false
				}
				if ok {
					sel.SetAttr(attr, resolved)
				}
				return true
			})
			if resolveErr != nil {
				return nil, resolveErr
			}
		}
	}

	head := doc.Find("head")
	if opts.Title != "" && doc.Find("title").Length() == 0 {
		head.AppendHtml("<title>" + html.EscapeString(opts.Title) + "</title>")
	}
	for _, href := range opts.Stylesheets {
		head.AppendHtml(fmt.Sprintf(`<link href=%q rel="stylesheet">`, href))
	}

	body := doc.Find("body")
	for _, src := range opts.Scripts {
		body.AppendHtml(fmt.Sprintf(`<script src=%q></script>`, src))
	}

	out, err := doc.Html()
	if err != nil {
		return nil, err
	}

	if !opts.Minify {
		return []byte(out), nil
	}
	return minifyHTML([]byte(out))
}

// renderHTML runs the html plugin for a build
func (p *Pipeline) renderHTML(ctx context.Context, options buildconfig.Options, res *Result) (string, error) {
	log := zerolog.Ctx(ctx)

	templatePath := p.abs(options.String("template", ""))
	template, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read template: %w", err)
	}

	opts := HTMLOptions{
		Stylesheets: res.Stylesheets,
		Title:       options.String("title", p.config.Title),
		Minify:      options.Bool("minify", false),
		Resolve: func(ref string) (string, bool, error) {
			return p.emitReference(filepath.Dir(templatePath), ref, res.Manifest)
		},
	}

	if rule, ok := p.rules.Match(templatePath); ok {
		if step, ok := rule.Step(buildconfig.ToolHTML); ok {
			opts.Attrs = step.Options.Strings("attrs")
		}
	}

	seen := map[string]bool{}
	for _, e := range p.build.EntryPoints {
		scripts, err := p.entryScripts(e)
		if err != nil {
			return "", err
		}
		for _, script := range scripts {
			if !seen[script] {
				seen[script] = true
				opts.Scripts = append(opts.Scripts, script)
			}
		}
	}

	page, err := RenderHTML(template, opts)
	if err != nil {
		return "", err
	}

	filename := options.String("filename", "index.html")
	target := filepath.Join(p.OutputDir(), filepath.FromSlash(filename))
	if err := os.WriteFile(target, page, 0o644); err != nil { //nolint:gosec
		return "", fmt.Errorf("failed to write page: %w", err)
	}

	log.Info().Str("file", target).Bool("minify", opts.Minify).Msg("Rendered page")
	res.Manifest.Set(filepath.Base(templatePath), filename)

	return filename, nil
}

// emitReference copies a file referenced from a template through the file
// rule matching it
func (p *Pipeline) emitReference(baseDir, ref string, manifest *Manifest) (string, bool, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", false, nil
	}

	source := filepath.Join(baseDir, filepath.FromSlash(u.Path))

	rule, ok := p.rules.Match(source)
	if !ok {
		return "", false, nil
	}
	step, ok := rule.Step(buildconfig.ToolFile)
	if !ok {
		return "", false, nil
	}

	key := p.metaPath(source)
	if emitted, ok := manifest.Lookup(key); ok {
		u.Path = emitted
		return u.String(), true, nil
	}

	content, err := os.ReadFile(source)
	if err != nil {
		return "", false, fmt.Errorf("referenced file %s: %w", ref, err)
	}

	name, ext := splitName(source)
	filename := ExpandFilename(step.Options.String("name", "[name]-[hash].[ext]"), FilenameVars{
		Name:    name,
		Ext:     ext,
		Content: content,
	})
	emitted := path.Join(step.Options.String("outputPath", ""), filename)

	target := filepath.Join(p.OutputDir(), filepath.FromSlash(emitted))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", false, err
	}
	if err := os.WriteFile(target, content, 0o644); err != nil { //nolint:gosec
		return "", false, err
	}

	manifest.Set(key, emitted)

	u.Path = emitted
	return u.String(), true, nil
}

var externalReference = regexp.MustCompile(`^([a-zA-Z][a-zA-Z0-9+.-]*:|//|#)`)

func isLocalReference(ref string) bool {
	ref = strings.TrimSpace(ref)
	return ref != "" && !strings.HasPrefix(ref, "/") && !externalReference.MatchString(ref)
}

func minifyHTML(page []byte) ([]byte, error) {
	m := minify.New()
	m.Add("text/html", &minhtml.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
	})
	m.AddFunc("text/css", mincss.Minify)
	m.AddFunc("image/svg+xml", minsvg.Minify)
	m.AddFuncRegexp(regexp.MustCompile("^(application|text)/(x-)?(java|ecma)script$"), minjs.Minify)
	return m.Bytes("text/html", page)
}
