// Package persona builds the system prompts that define how a generator
// behaves: which category of user it impersonates and what it focuses on.
package persona

import (
	"embed"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

//go:embed catalog/*.json
var builtin embed.FS

const (
	maxFocus      = 2
	maxGuidelines = 1
	maxExamples   = 3

	WarningPL  = "Generuj pojedyncze prompty które mogłby zadać użytkownik(jeden na wiadomość). Nie oceniaj odpowiedzi, nie twórz dialogu — skup się wyłącznie na generowaniu złożonych przykładów wejściowych. Zwracaj tylko pojedynczy prompt, bez komentarza."
	WarningENG = "Generate single prompts that a user could ask (one per message). Do not evaluate responses, do not create dialogue - focus solely on generating complex input examples. Return only a single prompt, without comment."
)

// Category is one entry of the system prompt catalog.
type Category struct {
	Name         string   `json:"category"`
	SystemPrompt string   `json:"system prompt"`
	Focus        []string `json:"focus"`
	Guidelines   []string `json:"guidelines"`
}

// Polish reports whether prompts of this category are written in Polish.
func (c Category) Polish() bool {
	return strings.HasSuffix(c.Name, "PL")
}

type examples struct {
	Category string   `json:"category"`
	Examples []string `json:"examples"`
}

// Catalog holds the categories and their example utterances.
type Catalog struct {
	categories []Category
	examples   map[string][]string

	mu  sync.Mutex
	rnd *rand.Rand
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog(rnd *rand.Rand) (*Catalog, error) {
	prompts, err := builtin.ReadFile("catalog/system_prompts.json")
	if err != nil {
		return nil, err
	}
	ex, err := builtin.ReadFile("catalog/examples.json")
	if err != nil {
		return nil, err
	}
	return ParseCatalog(prompts, ex, rnd)
}

// LoadCatalog reads a catalog from a directory containing
// system_prompts.json and examples.json.
func LoadCatalog(dir string, rnd *rand.Rand) (*Catalog, error) {
	prompts, err := os.ReadFile(filepath.Join(dir, "system_prompts.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read system prompts: %w", err)
	}
	ex, err := os.ReadFile(filepath.Join(dir, "examples.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read examples: %w", err)
	}
	return ParseCatalog(prompts, ex, rnd)
}

// ParseCatalog decodes the two catalog documents. A nil rnd seeds from the clock.
func ParseCatalog(promptsJSON, examplesJSON []byte, rnd *rand.Rand) (*Catalog, error) {
	var cats []Category
	if err := json.Unmarshal(promptsJSON, &cats); err != nil {
		return nil, fmt.Errorf("failed to parse system prompts: %w", err)
	}
	if len(cats) == 0 {
		return nil, fmt.Errorf("system prompt catalog is empty")
	}
	var exs []examples
	if err := json.Unmarshal(examplesJSON, &exs); err != nil {
		return nil, fmt.Errorf("failed to parse examples: %w", err)
	}

	if rnd == nil {
		seed := uint64(time.Now().UnixNano())
		rnd = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
	c := &Catalog{
		categories: cats,
		examples:   make(map[string][]string, len(exs)),
		rnd:        rnd,
	}
	for _, e := range exs {
		if _, dup := c.examples[e.Category]; !dup {
			c.examples[e.Category] = e.Examples
		}
	}
	return c, nil
}

// Categories lists category names in catalog order.
func (c *Catalog) Categories() []string {
	names := make([]string, len(c.categories))
	for i, cat := range c.categories {
		names[i] = cat.Name
	}
	return names
}

func (c *Catalog) category(name string) (Category, error) {
	if name == "" {
		return c.categories[c.rnd.IntN(len(c.categories))], nil
	}
	for _, cat := range c.categories {
		if cat.Name == name {
			return cat, nil
		}
	}
	return Category{}, fmt.Errorf("no prompts found for category: %s", name)
}

// sample returns at most n items in random order, or items unchanged when
// there are no more than n.
func (c *Catalog) sample(items []string, n int) []string {
	if len(items) <= n {
		return items
	}
	out := make([]string, 0, n)
	for _, i := range c.rnd.Perm(len(items))[:n] {
		out = append(out, items[i])
	}
	return out
}

// SystemPrompt renders the system prompt for a category. An empty category
// picks one at random.
func (c *Catalog) SystemPrompt(category string, addExamples bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cat, err := c.category(category)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(cat.SystemPrompt)
	b.WriteString("\n\n")
	b.WriteString(strings.Join(c.sample(cat.Focus, maxFocus), "\n"))
	b.WriteString("\n\n")
	b.WriteString(strings.Join(c.sample(cat.Guidelines, maxGuidelines), "\n"))

	if addExamples {
		ex, ok := c.examples[cat.Name]
		if !ok {
			return "", fmt.Errorf("no examples found for category: %s", cat.Name)
		}
		if cat.Polish() {
			b.WriteString("\n\nPrzykłady:\n")
		} else {
			b.WriteString("\nExamples:\n")
		}
		b.WriteString(strings.Join(c.sample(ex, maxExamples), ""))
	}

	b.WriteString("\n\n")
	if cat.Polish() {
		b.WriteString(WarningPL)
	} else {
		b.WriteString(WarningENG)
	}
	return b.String(), nil
}
