package runner

import (
	"path/filepath"
	"strings"
)

// interpreterNames are the Python executable base names that trigger the
// isolated execution path.
var interpreterNames = []string{"python", "python2", "python3", "pypy", "pypy3"}

// IsInterpreterCommand reports whether argv launches a Python interpreter.
// It matches on the path-stripped, case-insensitive base name of argv[0]
// (including version-suffixed forms such as python3.12), or on byte
// equality with the runner's configured interpreter path.
func (r *Runner) IsInterpreterCommand(argv []string) bool {
	if len(argv) == 0 {
		return false
	}
	if r.Interpreter != "" && argv[0] == r.Interpreter {
		return true
	}

	name := strings.ToLower(baseName(argv[0]))
	name = strings.TrimSuffix(name, ".exe")

	for _, base := range interpreterNames {
		if name == base {
			return true
		}
		// Version-suffixed form: python3.12, pypy3.10.
		if strings.HasPrefix(name, base+".") && isVersionSuffix(name[len(base)+1:]) {
			return true
		}
	}
	return false
}

// IsModuleInvocation reports whether argv is an interpreter command of the
// shape [python, -m, module, ...]. Already covered by IsInterpreterCommand
// for dispatch; exposed separately because callers log this sub-case.
func (r *Runner) IsModuleInvocation(argv []string) bool {
	return len(argv) >= 2 && r.IsInterpreterCommand(argv) && argv[1] == "-m"
}

// baseName strips directory components using either separator, so Windows
// style paths classify correctly regardless of the host platform.
func baseName(p string) string {
	p = filepath.Base(p)
	if i := strings.LastIndex(p, `\`); i >= 0 {
		p = p[i+1:]
	}
	return p
}

func isVersionSuffix(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && c != '.' {
			return false
		}
	}
	return true
}
