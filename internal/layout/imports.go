package layout

import (
	"path/filepath"
	"strings"
)

// SplitPackage splits an import path into its package name and the
// remaining module path. Scoped packages (@scope/name) take two segments.
func SplitPackage(importPath string) (pkg, rest string) {
	parts := strings.Split(importPath, "/")
	n := 1
	if strings.HasPrefix(parts[0], "@") && len(parts) > 1 {
		n = 2
	}
	return strings.Join(parts[:n], "/"), strings.Join(parts[n:], "/")
}

// IsRelativeImport reports whether importPath is relative to the importing
// file.
func IsRelativeImport(importPath string) bool {
	return strings.HasPrefix(importPath, "./") || strings.HasPrefix(importPath, "../")
}

// ClassicImportPaths maps "<pkg>/<rest>" to <root>/app/<rest>.
func ClassicImportPaths(root, importPath string) []string {
	_, rest := SplitPackage(importPath)
	return withScriptExts(root, "app", rest)
}

// ModuleUnificationImportPaths maps "<pkg>/<rest>" to <root>/<rest>.
func ModuleUnificationImportPaths(root, importPath string) []string {
	_, rest := SplitPackage(importPath)
	return withScriptExts(root, rest)
}

// TestScopeImportPaths joins a tests/ module path verbatim under root.
func TestScopeImportPaths(root, rest string) []string {
	return withScriptExts(root, rest)
}

// AddonImportPaths maps an import whose package is a known addon into that
// addon's addon/ tree, as a module file and as a directory index.
func AddonImportPaths(addons []AddonInfo, importPath string) []string {
	pkg, rest := SplitPackage(importPath)
	var out []string
	for _, a := range addons {
		if a.Name != pkg {
			continue
		}
		if rest == "" {
			out = append(out, withScriptExts(a.Root, "addon", "index")...)
			continue
		}
		out = append(out, withScriptExts(a.Root, "addon", rest)...)
		out = append(out, withScriptExts(a.Root, "addon", rest, "index")...)
	}
	return out
}

// RelativeImportPaths resolves ./x and ../x against the importing file.
func RelativeImportPaths(fromFile, importPath string) []string {
	base := filepath.Join(filepath.Dir(fromFile), filepath.FromSlash(importPath))
	return append(withScriptExts(base), withScriptExts(base, "index")...)
}

// ImportRequest describes an import declaration to resolve.
type ImportRequest struct {
	Root              string
	ProjectName       string
	ImportPath        string
	FromFile          string
	ModuleUnification bool
	Addons            []AddonInfo
}

// ImportPaths returns candidate files for an import. Test-scope imports of
// the project or an addon win over the generic resolvers.
func ImportPaths(req ImportRequest) []string {
	if IsRelativeImport(req.ImportPath) {
		if req.FromFile == "" {
			return nil
		}
		return RelativeImportPaths(req.FromFile, req.ImportPath)
	}

	pkg, rest := SplitPackage(req.ImportPath)
	if req.ProjectName != "" && pkg == req.ProjectName && isTestsPath(rest) {
		return TestScopeImportPaths(req.Root, rest)
	}
	for _, a := range req.Addons {
		if a.Name == pkg && isTestsPath(rest) {
			return TestScopeImportPaths(a.Root, rest)
		}
	}

	var out []string
	if req.ModuleUnification {
		out = ModuleUnificationImportPaths(req.Root, req.ImportPath)
	} else {
		out = ClassicImportPaths(req.Root, req.ImportPath)
	}
	return append(out, AddonImportPaths(req.Addons, req.ImportPath)...)
}

func isTestsPath(rest string) bool {
	return rest == "tests" || strings.HasPrefix(rest, "tests/")
}
