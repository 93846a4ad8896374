package walk

// ancestor is one open directory as the guard remembers it.
type ancestor struct {
	path   string
	key    any
	hasKey bool
}

// cycleGuard records the identities of the directories currently open on
// the frame stack. A key is in keys exactly while a directory with that key
// is an open ancestor.
type cycleGuard struct {
	sameFile  func(path1, path2 string) (bool, error)
	keys      map[any]int
	ancestors []ancestor
	keyless   int
}

func newCycleGuard(sameFile func(path1, path2 string) (bool, error)) *cycleGuard {
	return &cycleGuard{
		sameFile: sameFile,
		keys:     make(map[any]int),
	}
}

// wouldCycle reports whether the directory at path is one of the recorded
// ancestors. With keys everywhere it is a map lookup; otherwise each
// ancestor is compared with sameFile, and comparison errors mean "different".
func (g *cycleGuard) wouldCycle(path string, key any, hasKey bool) bool {
	if hasKey && g.keyless == 0 {
		return g.keys[key] > 0
	}

	for i := len(g.ancestors) - 1; i >= 0; i-- {
		anc := g.ancestors[i]
		if hasKey && anc.hasKey {
			if anc.key == key {
				return true
			}

			continue
		}

		same, err := g.sameFile(path, anc.path)
		if err == nil && same {
			return true
		}
	}

	return false
}

func (g *cycleGuard) enter(path string, key any, hasKey bool) {
	g.ancestors = append(g.ancestors, ancestor{path: path, key: key, hasKey: hasKey})

	if hasKey {
		g.keys[key]++
	} else {
		g.keyless++
	}
}

// leave forgets the most recently entered directory.
func (g *cycleGuard) leave() {
	if len(g.ancestors) == 0 {
		return
	}

	last := g.ancestors[len(g.ancestors)-1]
	g.ancestors = g.ancestors[:len(g.ancestors)-1]

	if !last.hasKey {
		g.keyless--
		return
	}

	g.keys[last.key]--
	if g.keys[last.key] == 0 {
		delete(g.keys, last.key)
	}
}

func (g *cycleGuard) reset() {
	clear(g.keys)
	g.ancestors = g.ancestors[:0]
	g.keyless = 0
}

func (g *cycleGuard) depth() int {
	return len(g.ancestors)
}
