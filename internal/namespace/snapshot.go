package namespace

import (
	"sort"
	"strings"
)

// Kind classifies a namespace entry. It is always derived from the snapshot
// contents, never stored alongside a path.
type Kind int

const (
	KindJob Kind = iota
	KindFolder
)

func (k Kind) String() string {
	if k == KindFolder {
		return "folder"
	}
	return "job"
}

// Join renders path segments in the canonical external form: joined with
// "/", no leading slash, case preserved.
func Join(path []string) string {
	return strings.Join(path, "/")
}

// Split parses the canonical form back into segments. Empty input is the
// repository root.
func Split(s string) []string {
	s = strings.Trim(strings.TrimSpace(s), "/")
	if s == "" {
		return nil
	}
	return strings.Split(s, "/")
}

// Snapshot is an immutable, point-in-time view of the job namespace under
// Root. It is created fresh per request and discarded afterwards; the job
// topology on the server can change at any time, so snapshots are never
// cached or shared across requests.
type Snapshot struct {
	root      []string
	recursive bool

	paths [][]string          // sorted by joined form
	index map[string][]string // joined form -> segments
}

// NewSnapshot builds a snapshot from the entry paths observed on the
// server. Duplicate paths collapse; order of the input does not matter.
func NewSnapshot(root []string, recursive bool, paths [][]string) *Snapshot {
	s := &Snapshot{
		root:      append([]string(nil), root...),
		recursive: recursive,
		index:     make(map[string][]string, len(paths)),
	}
	for _, p := range paths {
		joined := Join(p)
		if joined == "" {
			continue
		}
		if _, ok := s.index[joined]; ok {
			continue
		}
		cp := append([]string(nil), p...)
		s.index[joined] = cp
		s.paths = append(s.paths, cp)
	}
	sort.Slice(s.paths, func(i, j int) bool {
		return Join(s.paths[i]) < Join(s.paths[j])
	})
	return s
}

// Root returns the folder path the snapshot was fetched from.
func (s *Snapshot) Root() []string { return append([]string(nil), s.root...) }

// Recursive reports whether descendants beyond immediate children were
// fetched.
func (s *Snapshot) Recursive() bool { return s.recursive }

// Len returns the number of entries.
func (s *Snapshot) Len() int { return len(s.paths) }

// Paths returns all entry paths sorted by their joined form.
func (s *Snapshot) Paths() [][]string {
	out := make([][]string, len(s.paths))
	for i, p := range s.paths {
		out[i] = append([]string(nil), p...)
	}
	return out
}

// Segments returns the set of individual path segments present anywhere in
// the snapshot, in lower case. Used by the resolver's stop-word exception.
func (s *Snapshot) Segments() map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range s.paths {
		for _, seg := range p {
			set[strings.ToLower(seg)] = struct{}{}
		}
	}
	return set
}

// Contains reports whether path is an entry of the snapshot. Comparison is
// case-sensitive.
func (s *Snapshot) Contains(path []string) bool {
	_, ok := s.index[Join(path)]
	return ok
}

// Kind derives the classification of path from the snapshot's path set: an
// entry is a folder iff at least one other entry's path is a strict,
// segment-aligned prefix extension of it. Pure function of the snapshot;
// the result must not outlive it.
func (s *Snapshot) Kind(path []string) Kind {
	prefix := Join(path) + "/"
	for _, other := range s.paths {
		if strings.HasPrefix(Join(other), prefix) {
			return KindFolder
		}
	}
	return KindJob
}

// Under returns the entries whose paths sit strictly below folder, or the
// whole snapshot for the root. Results keep the sorted order.
func (s *Snapshot) Under(folder []string) [][]string {
	if len(folder) == 0 {
		return s.Paths()
	}
	prefix := Join(folder) + "/"
	var out [][]string
	for _, p := range s.paths {
		if strings.HasPrefix(Join(p), prefix) {
			out = append(out, append([]string(nil), p...))
		}
	}
	return out
}

// MatchFold looks up a candidate segment sequence case-insensitively and
// returns the snapshot path casing. exact is true when the candidate names
// an entry; a non-exact hit means the candidate is a strict prefix of some
// entry. Exact wins when both hold.
func (s *Snapshot) MatchFold(candidate []string) (actual []string, exact bool, ok bool) {
	for _, p := range s.paths {
		if len(p) < len(candidate) {
			continue
		}
		if !foldEqual(p[:len(candidate)], candidate) {
			continue
		}
		if len(p) == len(candidate) {
			return append([]string(nil), p...), true, true
		}
		if !ok {
			actual = append([]string(nil), p[:len(candidate)]...)
			ok = true
		}
	}
	return actual, false, ok
}

func foldEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}
