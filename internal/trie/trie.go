// Package trie implements the prefix-autocomplete index used to
// search symptoms by name.
package trie

import "strings"

type node struct {
	children  map[byte]*node
	isWordEnd bool
}

func newNode() *node {
	return &node{children: make(map[byte]*node)}
}

// Autocompleter is a case-insensitive prefix index over a set of words,
// each associated with zero or more item ids. It supports AND search
// across multiple whitespace-separated query tokens.
type Autocompleter struct {
	root   *node
	wordTo map[string]map[string]struct{} // word -> set of item ids
	itemTo map[string]map[string]struct{} // item id -> set of its words
}

// New returns an empty Autocompleter.
func New() *Autocompleter {
	return &Autocompleter{
		root:   newNode(),
		wordTo: make(map[string]map[string]struct{}),
		itemTo: make(map[string]map[string]struct{}),
	}
}

// Tokenize splits text on whitespace into lowercase, non-empty tokens.
func Tokenize(text string) []string {
	fields := strings.Fields(text)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToLower(f))
	}
	return out
}

// AddItem indexes itemID under every word extracted from texts (the
// union of a symptom's name and other-names).
func (a *Autocompleter) AddItem(itemID string, texts ...string) {
	words := map[string]struct{}{}
	for _, t := range texts {
		for _, w := range Tokenize(t) {
			words[w] = struct{}{}
		}
	}

	itemWords := a.itemTo[itemID]
	if itemWords == nil {
		itemWords = make(map[string]struct{})
		a.itemTo[itemID] = itemWords
	}

	for w := range words {
		if _, already := itemWords[w]; already {
			continue
		}
		a.insertWord(w)
		itemWords[w] = struct{}{}
		if a.wordTo[w] == nil {
			a.wordTo[w] = make(map[string]struct{})
		}
		a.wordTo[w][itemID] = struct{}{}
	}
}

// RemoveItem removes all index entries for itemID, pruning any trie
// branch left with no word-end and no children.
func (a *Autocompleter) RemoveItem(itemID string) {
	words := a.itemTo[itemID]
	if words == nil {
		return
	}
	for w := range words {
		if set := a.wordTo[w]; set != nil {
			delete(set, itemID)
			if len(set) == 0 {
				delete(a.wordTo, w)
				a.removeWord(w)
			}
		}
	}
	delete(a.itemTo, itemID)
}

func (a *Autocompleter) insertWord(w string) {
	n := a.root
	for i := 0; i < len(w); i++ {
		c := w[i]
		child := n.children[c]
		if child == nil {
			child = newNode()
			n.children[c] = child
		}
		n = child
	}
	n.isWordEnd = true
}

// removeWord clears the word-end flag and prunes any now-dead branch.
func (a *Autocompleter) removeWord(w string) {
	path := make([]*node, 0, len(w)+1)
	path = append(path, a.root)
	n := a.root
	for i := 0; i < len(w); i++ {
		child := n.children[w[i]]
		if child == nil {
			return // word not present; nothing to do
		}
		path = append(path, child)
		n = child
	}
	n.isWordEnd = false

	// Prune from the leaf upward: a node with no word-end and no
	// children is dead weight.
	for i := len(path) - 1; i > 0; i-- {
		cur := path[i]
		if cur.isWordEnd || len(cur.children) > 0 {
			break
		}
		parent := path[i-1]
		delete(parent.children, w[i-1])
	}
}

// wordsWithPrefix returns every indexed word starting with prefix.
func (a *Autocompleter) wordsWithPrefix(prefix string) []string {
	n := a.root
	for i := 0; i < len(prefix); i++ {
		child := n.children[prefix[i]]
		if child == nil {
			return nil
		}
		n = child
	}
	var out []string
	var walk func(cur *node, suffix string)
	walk = func(cur *node, suffix string) {
		if cur.isWordEnd {
			out = append(out, prefix+suffix)
		}
		for c, child := range cur.children {
			walk(child, suffix+string(c))
		}
	}
	walk(n, "")
	return out
}

// Search tokenizes query on whitespace and returns the AND-intersection
// of items matching every token's prefix. An empty query returns an
// empty result; callers substitute "all items" if desired.
func (a *Autocompleter) Search(query string) []string {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	var result map[string]struct{}
	for _, tok := range tokens {
		matched := make(map[string]struct{})
		for _, w := range a.wordsWithPrefix(tok) {
			for id := range a.wordTo[w] {
				matched[id] = struct{}{}
			}
		}
		if result == nil {
			result = matched
		} else {
			for id := range result {
				if _, ok := matched[id]; !ok {
					delete(result, id)
				}
			}
		}
		if len(result) == 0 {
			return nil
		}
	}

	out := make([]string, 0, len(result))
	for id := range result {
		out = append(out, id)
	}
	return out
}
