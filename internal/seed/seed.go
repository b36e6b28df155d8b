package seed

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"sotnwiki/app/internal/leaderboard"
	"sotnwiki/app/internal/wiki"
)

const dateLayout = "2006-01-02"

// File is the YAML seed document.
type File struct {
	Characters []string   `yaml:"characters"`
	Pages      []PageSeed `yaml:"pages"`
	Runs       []RunSeed  `yaml:"runs"`
}

// PageSeed describes a page to create.
type PageSeed struct {
	Title     string `yaml:"title"`
	Character string `yaml:"character"`
	Content   string `yaml:"content"`
	Published bool   `yaml:"published"`
}

// RunSeed describes a run to record. Time is a Go duration string such as "17m42s".
type RunSeed struct {
	Category string `yaml:"category"`
	Time     string `yaml:"time"`
	Runner   string `yaml:"runner"`
	Platform string `yaml:"platform"`
	Video    string `yaml:"video"`
	Date     string `yaml:"date"`
}

// Result counts what a load created or skipped.
type Result struct {
	CharactersCreated int
	PagesCreated      int
	PagesSkipped      int
	RunsCreated       int
}

// Parse decodes a seed document. Unknown fields are rejected.
func Parse(r io.Reader) (*File, error) {
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)

	var file File
	if err := decoder.Decode(&file); err != nil {
		if eris.Is(err, io.EOF) {
			return &file, nil
		}
		return nil, eris.Wrap(err, "decoding seed file")
	}

	return &file, nil
}

// ParseFile reads and decodes the seed document at path.
func ParseFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "opening seed file %s", path)
	}
	defer f.Close()

	return Parse(f)
}

// Loader writes seed documents through the wiki and leaderboard services.
type Loader struct {
	pages      wiki.PageService
	characters wiki.CharacterRepository
	runs       leaderboard.RunService
	logger     *logrus.Logger
}

// NewLoader wires the loader with its dependencies.
func NewLoader(pages wiki.PageService, characters wiki.CharacterRepository, runs leaderboard.RunService, logger *logrus.Logger) (*Loader, error) {
	if pages == nil {
		return nil, eris.New("page service is required")
	}
	if characters == nil {
		return nil, eris.New("character repository is required")
	}
	if runs == nil {
		return nil, eris.New("run service is required")
	}

	return &Loader{pages: pages, characters: characters, runs: runs, logger: logger}, nil
}

// Load applies the document. Existing characters and page titles are skipped, runs are always added.
func (l *Loader) Load(ctx context.Context, file *File) (Result, error) {
	var result Result
	if file == nil {
		return result, nil
	}

	characterIDs := make(map[string]uint)

	for _, name := range file.Characters {
		id, created, err := l.ensureCharacter(ctx, name)
		if err != nil {
			return result, err
		}
		characterIDs[strings.TrimSpace(name)] = id
		if created {
			result.CharactersCreated++
		}
	}

	for _, page := range file.Pages {
		created, err := l.loadPage(ctx, page, characterIDs, &result)
		if err != nil {
			return result, err
		}
		if created {
			result.PagesCreated++
		} else {
			result.PagesSkipped++
		}
	}

	for i, run := range file.Runs {
		if err := l.loadRun(ctx, run); err != nil {
			return result, eris.Wrapf(err, "loading run %d", i+1)
		}
		result.RunsCreated++
	}

	if l.logger != nil {
		l.logger.WithFields(logrus.Fields{
			"component":          "seed",
			"characters_created": result.CharactersCreated,
			"pages_created":      result.PagesCreated,
			"pages_skipped":      result.PagesSkipped,
			"runs_created":       result.RunsCreated,
		}).Info("seed file applied")
	}

	return result, nil
}

func (l *Loader) ensureCharacter(ctx context.Context, name string) (uint, bool, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return 0, false, eris.New("character name is required")
	}

	existing, err := l.characters.GetByName(ctx, trimmed)
	if err != nil {
		return 0, false, eris.Wrapf(err, "looking up character %s", trimmed)
	}
	if existing != nil {
		return existing.ID, false, nil
	}

	character := &wiki.Character{Name: trimmed}
	if err := l.characters.Create(ctx, character); err != nil {
		return 0, false, eris.Wrapf(err, "creating character %s", trimmed)
	}

	return character.ID, true, nil
}

func (l *Loader) loadPage(ctx context.Context, page PageSeed, characterIDs map[string]uint, result *Result) (bool, error) {
	title := strings.TrimSpace(page.Title)

	_, err := l.pages.GetPageByTitle(ctx, title)
	switch {
	case err == nil:
		return false, nil
	case !eris.Is(err, wiki.ErrPageNotFound):
		return false, eris.Wrapf(err, "checking page %q", title)
	}

	input := wiki.CreatePageInput{
		Title:       title,
		Content:     page.Content,
		IsPublished: page.Published,
	}

	if name := strings.TrimSpace(page.Character); name != "" {
		id, ok := characterIDs[name]
		if !ok {
			var (
				created bool
				err     error
			)
			id, created, err = l.ensureCharacter(ctx, name)
			if err != nil {
				return false, err
			}
			characterIDs[name] = id
			if created {
				result.CharactersCreated++
			}
		}
		input.CharacterID = &id
	}

	if _, err := l.pages.CreatePage(ctx, input); err != nil {
		return false, eris.Wrapf(err, "creating page %q", title)
	}

	return true, nil
}

func (l *Loader) loadRun(ctx context.Context, run RunSeed) error {
	d, err := time.ParseDuration(strings.TrimSpace(run.Time))
	if err != nil {
		return eris.Wrapf(err, "parsing run time %q", run.Time)
	}

	var submittedOn time.Time
	if date := strings.TrimSpace(run.Date); date != "" {
		submittedOn, err = time.Parse(dateLayout, date)
		if err != nil {
			return eris.Wrapf(err, "parsing run date %q", run.Date)
		}
	}

	_, err = l.runs.AddRun(ctx, leaderboard.RunInput{
		Category:    run.Category,
		Time:        d,
		Runner:      run.Runner,
		Platform:    run.Platform,
		VideoURL:    run.Video,
		SubmittedOn: submittedOn,
	})
	return err
}
