// Package generator implements the per-kind generators and file mapper
// from spec.md §4.5: the event contract (Create/Remove/Modify/Rename)
// that turns watcher events into compiler-facade calls and writes
// wrapped HTML (or copied assets) to the output tree.
package generator

import "sync"

// Kind names the four generator roles spec.md §4.5 distinguishes.
// Article/General/Static line up with compiler.ContentKind; Wrapper
// has no compiler-facade counterpart — wrapper templates influence
// articles only through invalidation, never compiled directly.
type Kind int

const (
	KindArticle Kind = iota
	KindGeneral
	KindStatic
	KindWrapper
)

func (k Kind) String() string {
	switch k {
	case KindArticle:
		return "article"
	case KindGeneral:
		return "general"
	case KindStatic:
		return "static"
	case KindWrapper:
		return "wrapper"
	default:
		return "unknown"
	}
}

// FileMap is the shared source->destination index spec.md §4.5's
// refresh() consults ("looked up in the same source→dest map"). It is
// shared across every FileGenerator in a site so that refresh(), which
// iterates facade-wide results, can find the right destination
// regardless of which generator originally created the entry —
// grounded on original_source/allay-publish's FILE_MAP, translated
// from a process-global Mutex<HashMap> into an explicit struct any
// number of generators can hold a pointer to.
type FileMap struct {
	mu sync.Mutex
	m  map[string]string
}

// NewFileMap builds an empty shared file map.
func NewFileMap() *FileMap {
	return &FileMap{m: make(map[string]string)}
}

func (f *FileMap) Set(source, dest string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.m[source] = dest
}

func (f *FileMap) Get(source string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.m[source]
	return d, ok
}

func (f *FileMap) Delete(source string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.m, source)
}
