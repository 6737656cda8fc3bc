package locate

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/npillmayer/schuko/gconf"
	"github.com/zr-tex8r/ZRTeXtor/core"
	"github.com/zr-tex8r/ZRTeXtor/core/kanji"
)

// ConfigFileName is looked up next to the executable and in the
// working directory.
const ConfigFileName = "ZRTeXtor.cfg"

// UseUpTeX switches the pTeX commands to their upTeX counterparts.
var UseUpTeX bool

var (
	cmdMu    sync.Mutex
	cmdNames = map[string]string{
		"kpsewhich": "kpsewhich",
		"tftopl":    "tftopl",
		"ptftopl":   "ptftopl",
		"pltotf":    "pltotf",
		"ppltotf":   "ppltotf",
		"uptftopl":  "uptftopl",
		"uppltotf":  "uppltotf",
		"vptovf":    "vptovf",
		"opl2ofm":   "opl2ofm",
		"xetex":     "xetex",
	}
	cfgOnce sync.Once
)

// Command resolves the executable name for a toolchain command. A
// value from the global configuration wins over ZRTeXtor.cfg, which
// wins over the built-in default.
func Command(name string) string {
	cfgOnce.Do(loadConfigFile)
	if over := gconf.GetString("cmd-" + name); over != "" {
		return over
	}
	cmdMu.Lock()
	defer cmdMu.Unlock()
	if cmd, ok := cmdNames[name]; ok {
		return cmd
	}
	return name
}

func loadConfigFile() {
	candidates := []string{ConfigFileName}
	if exe, err := os.Executable(); err == nil {
		candidates = append(candidates, filepath.Join(filepath.Dir(exe), ConfigFileName))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := LoadConfigFile(path); err != nil {
			tracer().Errorf("cannot read %s: %v", path, core.UserMessage(err))
		}
		return
	}
}

// LoadConfigFile reads a line-based `key = value` configuration file.
// '#' starts a comment. Known keys override command names; the keys
// jcode and incode set the default external/internal Japanese
// encodings.
func LoadConfigFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return core.WrapError(err, core.EMISSING, "configuration file %s not readable", path)
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return core.Error(core.ESYNTAX, "%s:%d: not a key = value line", path, lineno)
		}
		key := strings.TrimSpace(line[:eq])
		value := strings.TrimSpace(line[eq+1:])
		applyConfig(key, value)
	}
	return scanner.Err()
}

func applyConfig(key, value string) {
	switch key {
	case "jcode":
		if kanji.ValidExternal(value) {
			kanji.Default.External = value
		} else {
			tracer().Errorf("unknown external encoding %q in configuration", value)
		}
	case "incode":
		if kanji.ValidInternal(value) {
			kanji.Default.Internal = value
		} else {
			tracer().Errorf("unknown internal encoding %q in configuration", value)
		}
	case "uptex":
		UseUpTeX = value == "1" || value == "true" || value == "yes"
	default:
		cmdMu.Lock()
		if _, known := cmdNames[key]; known {
			cmdNames[key] = value
		} else {
			tracer().Infof("ignoring unknown configuration key %q", key)
		}
		cmdMu.Unlock()
	}
}

// PLConverter names the PL↔TFM converter honoring the upTeX switch:
// e.g. "ptftopl" becomes "uptftopl".
func PLConverter(name string) string {
	if UseUpTeX {
		switch name {
		case "ptftopl":
			return "uptftopl"
		case "ppltotf":
			return "uppltotf"
		}
	}
	return name
}
