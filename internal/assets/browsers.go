package assets

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// baselineEngines stand in for usage based queries ("> 0.25%", "defaults",
// "last 2 versions") since there is no usage data to resolve them against.
var baselineEngines = []api.Engine{
	{Name: api.EngineChrome, Version: "80"},
	{Name: api.EngineEdge, Version: "80"},
	{Name: api.EngineFirefox, Version: "78"},
	{Name: api.EngineIOS, Version: "13"},
	{Name: api.EngineSafari, Version: "13"},
}

var browserEngines = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ff":      api.EngineFirefox,
	"ios":     api.EngineIOS,
	"ios_saf": api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

var versionQuery = regexp.MustCompile(`^([a-z_]+)\s*(>=|>)?\s*([0-9]+(?:\.[0-9]+)*)$`)

// Browsers translates browserslist queries into esbuild target engines. The
// lowest version wins when several queries name the same engine. Queries
// esbuild cannot target are returned as skipped; Internet Explorer is one of
// them because esbuild does not lower JavaScript to ES5.
func Browsers(queries []string) ([]api.Engine, []string) {
	versions := map[api.EngineName]string{}
	var skipped []string

	add := func(name api.EngineName, version string) {
		if cur, ok := versions[name]; !ok || versionLess(version, cur) {
			versions[name] = version
		}
	}

	for _, raw := range queries {
		q := strings.ToLower(strings.TrimSpace(raw))

		switch {
		case strings.HasPrefix(q, ">"), q == "defaults", strings.HasPrefix(q, "last "):
			for _, e := range baselineEngines {
				add(e.Name, e.Version)
			}
			continue
		}

		m := versionQuery.FindStringSubmatch(q)
		if m == nil {
			skipped = append(skipped, raw)
			continue
		}

		name, ok := browserEngines[m[1]]
		if !ok {
			skipped = append(skipped, raw)
			continue
		}

		version := m[3]
		if m[2] == ">" {
			version = nextMajor(version)
		}
		add(name, version)
	}

	engines := make([]api.Engine, 0, len(versions))
	for name, version := range versions {
		engines = append(engines, api.Engine{Name: name, Version: version})
	}
	sort.Slice(engines, func(i, j int) bool { return engines[i].Name < engines[j].Name })

	return engines, skipped
}

func versionLess(a, b string) bool {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var x, y int
		if i < len(as) {
			x, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			y, _ = strconv.Atoi(bs[i])
		}
		if x != y {
			return x < y
		}
	}
	return false
}

func nextMajor(version string) string {
	major, _, _ := strings.Cut(version, ".")
	n, _ := strconv.Atoi(major)
	return strconv.Itoa(n + 1)
}
