package buildconfig

// Processing step names used in rule chains.
const (
	ToolExtractCSS = "extract-css"
	ToolCSS        = "css"
	ToolPostCSS    = "postcss"
	ToolSass       = "sass"
	ToolHTML       = "html"
	ToolFile       = "file"
	ToolTranspile  = "transpile"
)

// Plugin names run after the main build.
const (
	PluginClean      = "clean"
	PluginExtractCSS = "extract-css"
	PluginHTML       = "html"
	PluginImagemin   = "imagemin"
)

// PostCSS plugin names.
const (
	PostCSSAutoprefixer = "autoprefixer"
	PostCSSPurge        = "purgecss"
)

// BuildConfig describes one build variant. It is plain data: the pipeline
// reads it, nothing mutates it after Select returns.
type BuildConfig struct {
	Mode        Mode         `yaml:"mode"`
	Source      string       `yaml:"source"`
	Root        string       `yaml:"root"`
	EntryPoints []EntryPoint `yaml:"entry"`
	Output      Output       `yaml:"output"`
	DevTool     string       `yaml:"devtool,omitempty"`
	DevServer   *DevServer   `yaml:"devServer,omitempty"`
	Rules       []Rule       `yaml:"rules"`
	Plugins     []Plugin     `yaml:"plugins"`
	PostCSS     PostCSS      `yaml:"postcss"`
}

// EntryPoint maps a logical bundle name to its source file.
type EntryPoint struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

// Output is the destination directory and the filename template for entry
// bundles. The template understands [name], [ext], [hash] and [contenthash].
type Output struct {
	Path     string `yaml:"path"`
	Filename string `yaml:"filename"`
}

type DevServer struct {
	Open       bool `yaml:"open"`
	LiveReload bool `yaml:"liveReload"`
	Port       int  `yaml:"port"`
}

// Rule applies a processing chain to every file whose path matches Test and
// not Exclude. Both are regular expressions. Chain order is kept exactly as
// declared; steps apply last to first.
type Rule struct {
	Test    string `yaml:"test"`
	Exclude string `yaml:"exclude,omitempty"`
	Chain   []Step `yaml:"use"`
}

// Step is one tool invocation in a processing chain.
type Step struct {
	Tool    string  `yaml:"loader"`
	Options Options `yaml:"options,omitempty"`
}

// Plugin runs once after bundling.
type Plugin struct {
	Name    string  `yaml:"name"`
	Options Options `yaml:"options,omitempty"`
}

// PostCSS holds the plugins and browser targets shared by every mode.
type PostCSS struct {
	Plugins  []Plugin `yaml:"plugins"`
	Browsers []string `yaml:"browsers"`
}

// Options is an option bag passed verbatim to a tool.
type Options map[string]any

// String returns the string stored at key, or def.
func (o Options) String(key, def string) string {
	if v, ok := o[key].(string); ok {
		return v
	}
	return def
}

// Bool returns the bool stored at key, or def.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key].(bool); ok {
		return v
	}
	return def
}

// Int returns the integer stored at key, or def.
func (o Options) Int(key string, def int) int {
	switch v := o[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// Strings returns the string list stored at key.
func (o Options) Strings(key string) []string {
	switch v := o[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Options returns the nested option bag stored at key.
func (o Options) Options(key string) Options {
	switch v := o[key].(type) {
	case Options:
		return v
	case map[string]any:
		return Options(v)
	}
	return nil
}

// Plugin returns the first plugin with the given name.
func (c *BuildConfig) Plugin(name string) (Plugin, bool) {
	for _, p := range c.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin{}, false
}

// HasTool reports whether any rule chain uses the tool.
func (c *BuildConfig) HasTool(tool string) bool {
	_, ok := c.Step(tool)
	return ok
}

// Step returns the first step for tool across all rules.
func (c *BuildConfig) Step(tool string) (Step, bool) {
	for _, r := range c.Rules {
		for _, s := range r.Chain {
			if s.Tool == tool {
				return s, true
			}
		}
	}
	return Step{}, false
}

// PostCSSPlugin returns the postcss plugin with the given name.
func (c *BuildConfig) PostCSSPlugin(name string) (Plugin, bool) {
	for _, p := range c.PostCSS.Plugins {
		if p.Name == name {
			return p, true
		}
	}
	return Plugin{}, false
}

// SourceMaps reports whether the devtool setting asks for source maps.
func (c *BuildConfig) SourceMaps() bool {
	return c.DevTool != ""
}
