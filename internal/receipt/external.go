package receipt

import (
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5"

	"git.home.luguber.info/inful/targetbuilder/internal/modulegraph"
	"git.home.luguber.info/inful/targetbuilder/internal/util/fsutil"
	"git.home.luguber.info/inful/targetbuilder/internal/util/sets"
)

// ExternalFileList returns the files a consumer of precompiled modules needs:
// each module's declaration file, its external dependency files and the
// headers under its public include paths.
func ExternalFileList(fs billy.Filesystem, modules []*modulegraph.Module) ([]string, error) {
	files := sets.New[string]()
	isHeader := func(p string) bool {
		ext := strings.ToLower(filepath.Ext(p))
		return ext == ".h" || ext == ".inl"
	}
	for _, m := range modules {
		if m.Rules == nil {
			continue
		}
		files.Add(m.RulesFile)
		for _, dep := range m.Rules.ExternalDependencies {
			if !filepath.IsAbs(dep) {
				dep = filepath.Join(m.Directory, dep)
			}
			files.Add(dep)
		}
		for _, dir := range m.PublicIncludePaths {
			headers, err := fsutil.ListFiles(fs, dir, isHeader)
			if err != nil {
				return nil, err
			}
			for _, h := range headers {
				files.Add(h)
			}
		}
	}
	return sets.Sorted(files), nil
}
