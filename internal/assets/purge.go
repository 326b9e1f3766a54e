package assets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"github.com/wolfeidau/frontbuild/internal/buildconfig"
)

// Selectors holds the class names and ids found in content files
type Selectors struct {
	Classes map[string]struct{}
	IDs     map[string]struct{}
}

func NewSelectors() Selectors {
	return Selectors{
		Classes: map[string]struct{}{},
		IDs:     map[string]struct{}{},
	}
}

// AddHTML records every class and id used in an HTML document
func (s Selectors) AddHTML(r io.Reader) error {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return err
	}

	doc.Find("[class]").Each(func(_ int, sel *goquery.Selection) {
		for _, class := range strings.Fields(sel.AttrOr("class", "")) {
			s.Classes[class] = struct{}{}
		}
	})
	doc.Find("[id]").Each(func(_ int, sel *goquery.Selection) {
		if id := strings.TrimSpace(sel.AttrOr("id", "")); id != "" {
			s.IDs[id] = struct{}{}
		}
	})
	return nil
}

// CollectSelectors scans the files under root matching any of the glob
// patterns. node_modules is never scanned.
func CollectSelectors(root string, patterns []string) (Selectors, error) {
	used := NewSelectors()
	fsys := os.DirFS(root)

	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(pattern, "./")

		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return Selectors{}, fmt.Errorf("invalid content pattern %q: %w", pattern, err)
		}

		for _, match := range matches {
			if strings.HasPrefix(match, "node_modules/") || strings.Contains(match, "/node_modules/") {
				continue
			}
			if err := addFile(fsys, match, used); err != nil {
				return Selectors{}, err
			}
		}
	}

	return used, nil
}

func addFile(fsys fs.FS, name string, used Selectors) error {
	f, err := fsys.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := used.AddHTML(f); err != nil {
		return fmt.Errorf("failed to scan %s: %w", name, err)
	}
	return nil
}

// Purge removes style rules whose selectors reference a class or id that
// is not in used. A rule survives while at least one of its selectors
// does. Block at-rules keep their nested rules purged the same way and are
// dropped when nothing inside them survives.
func Purge(stylesheet []byte, used Selectors) ([]byte, error) {
	p := css.NewParser(parse.NewInputBytes(stylesheet), false)

	// one buffer per open at-rule block, the stylesheet itself at the bottom
	stack := []*bytes.Buffer{{}}
	var (
		headers []string
		pending [][]css.Token
		skip    bool
	)

	for {
		gt, _, data := p.Next()
		out := stack[len(stack)-1]

		switch gt {
		case css.ErrorGrammar:
			if errors.Is(p.Err(), io.EOF) {
				return stack[0].Bytes(), nil
			}
			return nil, p.Err()
		case css.AtRuleGrammar:
			writeAtRule(out, data, p.Values())
			out.WriteByte(';')
		case css.BeginAtRuleGrammar:
			var header bytes.Buffer
			writeAtRule(&header, data, p.Values())
			headers = append(headers, header.String())
			stack = append(stack, &bytes.Buffer{})
		case css.EndAtRuleGrammar:
			if len(stack) == 1 {
				continue
			}
			body := stack[len(stack)-1]
			header := headers[len(headers)-1]
			stack = stack[:len(stack)-1]
			headers = headers[:len(headers)-1]

			if body.Len() > 0 {
				parent := stack[len(stack)-1]
				parent.WriteString(header)
				parent.WriteByte('{')
				parent.Write(body.Bytes())
				parent.WriteByte('}')
			}
		case css.QualifiedRuleGrammar:
			pending = append(pending, cloneTokens(p.Values()))
		case css.BeginRulesetGrammar:
			pending = append(pending, cloneTokens(p.Values()))

			var kept []string
			for _, selector := range pending {
				if selectorUsed(selector, used) {
					kept = append(kept, strings.TrimSpace(tokensString(selector)))
				}
			}
			pending = pending[:0]

			skip = len(kept) == 0
			if !skip {
				out.WriteString(strings.Join(kept, ","))
				out.WriteByte('{')
			}
		case css.EndRulesetGrammar:
			if !skip {
				out.WriteByte('}')
			}
			skip = false
		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			if !skip {
				out.Write(data)
				out.WriteByte(':')
				out.WriteString(tokensString(p.Values()))
				out.WriteByte(';')
			}
		case css.CommentGrammar:
			// dropped
		default:
			if !skip {
				out.Write(data)
			}
		}
	}
}

func writeAtRule(out *bytes.Buffer, data []byte, values []css.Token) {
	out.Write(data)
	if len(values) > 0 && values[0].TokenType != css.WhitespaceToken {
		out.WriteByte(' ')
	}
	out.WriteString(tokensString(values))
}

// selectorUsed reports whether every class and id at the top level of a
// selector is in used. Arguments of functional pseudo-classes such as
// :not() and attribute selectors are ignored.
func selectorUsed(tokens []css.Token, used Selectors) bool {
	depth := 0
	for i, t := range tokens {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.HashToken:
			if depth == 0 {
				if _, ok := used.IDs[unescapeIdent(string(t.Data[1:]))]; !ok {
					return false
				}
			}
		case css.DelimToken:
			if depth == 0 && string(t.Data) == "." && i+1 < len(tokens) && tokens[i+1].TokenType == css.IdentToken {
				if _, ok := used.Classes[unescapeIdent(string(tokens[i+1].Data))]; !ok {
					return false
				}
			}
		}
	}
	return true
}

func unescapeIdent(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	return b.String()
}

func tokensString(tokens []css.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		b.Write(t.Data)
	}
	return b.String()
}

// cloneTokens copies tokens out of the parser's reused buffer
func cloneTokens(tokens []css.Token) []css.Token {
	out := make([]css.Token, len(tokens))
	for i, t := range tokens {
		out[i] = css.Token{TokenType: t.TokenType, Data: bytes.Clone(t.Data)}
	}
	return out
}

// purger applies the purgecss step to stylesheets matched by a rule with a
// postcss step. Selectors are collected again at the start of every build.
type purger struct {
	root     string
	patterns []string
	rules    buildconfig.Rules

	mu   sync.RWMutex
	used Selectors
}

func (pg *purger) collect() error {
	used, err := CollectSelectors(pg.root, pg.patterns)
	if err != nil {
		return err
	}

	pg.mu.Lock()
	pg.used = used
	pg.mu.Unlock()
	return nil
}

func (pg *purger) applies(path string) bool {
	rule, ok := pg.rules.Match(path)
	if !ok {
		return false
	}
	_, ok = rule.Step(buildconfig.ToolPostCSS)
	return ok
}

func (pg *purger) purge(stylesheet []byte) ([]byte, error) {
	pg.mu.RLock()
	defer pg.mu.RUnlock()

	return Purge(stylesheet, pg.used)
}

// plugin purges plain .css files as esbuild loads them, so bundles and their
// source maps describe the purged stylesheet.
func (pg *purger) plugin() api.Plugin {
	return api.Plugin{
		Name: "purgecss",
		Setup: func(build api.PluginBuild) {
			build.OnStart(func() (api.OnStartResult, error) {
				return api.OnStartResult{}, pg.collect()
			})

			build.OnLoad(api.OnLoadOptions{Filter: `\.css$`}, func(args api.OnLoadArgs) (api.OnLoadResult, error) {
				if !pg.applies(args.Path) {
					return api.OnLoadResult{}, nil
				}

				src, err := os.ReadFile(args.Path)
				if err != nil {
					return api.OnLoadResult{}, err
				}

				purged, err := pg.purge(src)
				if err != nil {
					return api.OnLoadResult{}, fmt.Errorf("purge %s: %w", args.Path, err)
				}

				contents := string(purged)
				return api.OnLoadResult{
					Contents:   &contents,
					Loader:     api.LoaderCSS,
					ResolveDir: filepath.Dir(args.Path),
				}, nil
			})
		},
	}
}
