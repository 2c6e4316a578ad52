package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dsp-labs/evidencer-cli/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk.
// Prompts are loaded from a configurable directory with fallback to embedded defaults.
//
// The store uses lazy initialisation - files are only created when first accessed,
// not in the constructor. This makes testing easier and avoids unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts.
// These are used when user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptScreenSystem: `You are an expert research assistant. Your task is to determine if a given study is relevant to the user's description. Respond ONLY with 'include' or 'exclude'.`,

	driven.PromptScreen: `User's description of relevant studies:
%s

Study Title: %s
Study Abstract: %s

Is this study relevant? Respond ONLY with 'include' or 'exclude'.`,

	driven.PromptMeta: `Extract the following information from the scientific paper:

1: The study title.
2: The population outcome was measured in (e.g., if the intervention educated parents of children aged 2-4, the outcome population may be the children aged 2-4).
3: The population any intervention directly affected or the predictors were measured in (if not available, return 'NA').
4: Secondary characteristics of the population context (e.g. families of low socioeconomic status).
5: Country the study was carried out in.
6: Identify the type of study. Provide only the letter:
   a) purely cross-sectional study
   b) Study measures outcome pre and post intervention without a control group
   c) purely cross-sectional study, uses control variables
   d) Study measures outcome pre and post intervention, uses control variables
   e) Comparison of outcomes in treated group against an untreated group
   f) Quasi-experimental study
   g) Randomised controlled trial
   h) Meta-analysis.
7: How many main results does this study report? Focus only on main results. Return only an integer.
8: List each of the main results of the study (e.g. parenting education decreased child mental health problems), separated by semi-colons.

If any item is not available, return 'NA'. Number your answers exactly: '1: ...', '2: ...', etc.

Example output:
1: Study on Parenting Strategies
2: Children aged 2-4
3: Parents of children aged 2-4
4: Families from urban areas
5: USA
6: g
7: 3
8: Parenting education improved child mental health; Parenting education increased school readiness; Parenting education reduced parental stress.`,

	driven.PromptDetail: `We have a specific main result from the study:
'%s'

Extract the following information:
1: The effect size type for this main result (e.g. odds ratio, difference of means).
2: The effect size for this main result.
3: The estimate of uncertainty in the effect size (e.g. s.e., 95%% CI).
4: The P-value for this main result.
5: The total sample size for the study.
6: The intervention or predictor variable (i.e., what was manipulated or used as a predictor).
7: The outcome variable.

If any of the information is not available, return 'NA'. Number your answers exactly as '1: ...', '2: ...', etc.

Example output:
1: Odds ratio
2: 1.8
3: 95%% CI [1.2, 2.4]
4: 0.03
5: 250
6: Parenting education
7: Child mental health problems`,

	driven.PromptExtras: `The user has additional items they want extracted from this paper.
Please respond with the answers to each item, enumerated exactly as '1: ...', '2: ...', etc.
If the information is not available, return 'NA'.

Example output:
1: This is the first answer
2: This is the second answer
3: NA`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.evidencer/prompts/.
//
// The constructor does not perform any I/O - directory creation and
// file writes happen lazily on first Load() call.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".evidencer", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name.
// On first call, initialises the prompt directory and creates default files.
// Returns cached value if available, otherwise loads from file.
// Falls back to embedded default if file doesn't exist.
func (s *PromptStore) Load(name string) (string, error) {
	// Ensure directory and defaults exist (lazy init)
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		// Fall back to embedded defaults if init failed
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	// Check cache first (read lock)
	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		// Fall back to embedded default
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Cache the result (write lock)
	// Use double-check pattern to avoid overwriting concurrent loads
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		// Another goroutine loaded it first, use their value
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	// Create directory
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	// Create README
	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Evidencer Prompts

This directory contains customisable prompts used by the extraction pipeline.

## Files

- ` + "`screen_system.txt`" + ` - System message for reference screening
- ` + "`screen.txt`" + ` - Screening decision prompt (include/exclude)
- ` + "`extract_meta.txt`" + ` - Pass 1: study-level meta information
- ` + "`extract_detail.txt`" + ` - Pass 2: per-result effect sizes
- ` + "`extract_extras.txt`" + ` - Pass 3: user-supplied extra items

## Customisation

Edit any file to adjust extraction behaviour. Changes take effect on the
next command. Keep the enumerated answer format ('1: ...', '2: ...')
intact: the response parser depends on it.

## Format Placeholders

Some prompts use Go fmt placeholders:
- ` + "`%s`" + ` - String (e.g., the relevance description or result text)

Ensure customised prompts maintain placeholders in the correct positions.
`
	return os.WriteFile(path, []byte(content), 0600)
}
