// Package archive implements the backup session store: a timestamped,
// append-only directory per migration attempt holding copies of user
// configuration paths, a manifest, and generated recovery scripts.
package archive

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/demigrate/demigrate/pkg/errors"
	"github.com/demigrate/demigrate/pkg/logging"
	"github.com/demigrate/demigrate/pkg/paths"
	"github.com/demigrate/demigrate/pkg/types"
)

// Disposition records what happened to one archived path.
type Disposition string

const (
	DispositionCopied         Disposition = "copied"
	DispositionMoved          Disposition = "moved"
	DispositionSkippedMissing Disposition = "skipped-missing"
)

// Mode selects how a path is archived. Move is only used for paths being
// actively reset; passive backups always copy so they survive a later
// failure of the enclosing operation.
type Mode int

const (
	ModeCopy Mode = iota
	ModeMove
)

func (m Mode) String() string {
	if m == ModeMove {
		return "move"
	}
	return "copy"
}

// ArchivedPath is one record in the session's append-only path list.
type ArchivedPath struct {
	SourcePath   string      `json:"sourcePath"`
	RelativePath string      `json:"relativePath"`
	Category     string      `json:"category"`
	Disposition  Disposition `json:"disposition"`
}

// Session is one backup session. It exclusively owns its root directory
// for its entire lifetime; records are appended during the pre-switch
// phase and never mutated after Finalize.
type Session struct {
	ID   string
	Root string

	mctx     types.MigrationContext
	paths    *paths.Paths
	archived []ArchivedPath
	seen     map[string]bool
	failures int
	logger   zerolog.Logger
}

// Store creates and loads backup sessions under the configured backup root.
type Store struct {
	paths  *paths.Paths
	logger zerolog.Logger

	// now is swappable for deterministic session ids in tests
	now func() time.Time
}

// NewStore returns a session store rooted at the paths' backup root.
func NewStore(p *paths.Paths) *Store {
	return &Store{
		paths:  p,
		logger: logging.GetLogger("archive.store"),
		now:    time.Now,
	}
}

// BeginSession creates a new backup session directory named after the
// current timestamp. In dry-run mode no directory is created; the session
// still tracks every decision so the preview is faithful.
func (s *Store) BeginSession(mctx types.MigrationContext) (*Session, error) {
	id := s.now().Format("20060102-150405")
	root := s.paths.SessionDir(id)

	sess := &Session{
		ID:     id,
		Root:   root,
		mctx:   mctx,
		paths:  s.paths,
		seen:   make(map[string]bool),
		logger: logging.GetLogger("archive.session"),
	}

	if mctx.DryRun {
		fmt.Printf("[dry-run] would create backup session %s\n", root)
		return sess, nil
	}

	for _, dir := range []string{root, filepath.Join(root, ConfigsDirName), filepath.Join(root, MetadataDirName)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrapf(err, errors.ErrDirCreate, "failed to create session directory %s", dir)
		}
	}

	sess.logger.Info().Str("id", id).Str("root", root).Msg("Backup session started")
	return sess, nil
}

// Archive copies or moves one source path into the session under
// configs/<category>/. A missing source is a no-op success with
// disposition skipped-missing. A failure is reported but leaves the
// session usable; subsequent paths are still attempted.
func (s *Session) Archive(sourceAbs string, mode Mode, category string) (ArchivedPath, error) {
	rel := s.paths.RelativeToHome(sourceAbs)
	record := ArchivedPath{
		SourcePath:   sourceAbs,
		RelativePath: rel,
		Category:     category,
	}

	if s.seen[sourceAbs] {
		s.logger.Debug().Str("path", sourceAbs).Msg("Path already archived in this session")
		for _, prior := range s.archived {
			if prior.SourcePath == sourceAbs {
				return prior, nil
			}
		}
	}
	s.seen[sourceAbs] = true

	if _, err := os.Lstat(sourceAbs); os.IsNotExist(err) {
		record.Disposition = DispositionSkippedMissing
		s.archived = append(s.archived, record)
		s.logger.Debug().Str("path", sourceAbs).Msg("Source does not exist, skipping")
		return record, nil
	}

	dest := filepath.Join(s.Root, ConfigsDirName, category, rel)

	if mode == ModeMove {
		record.Disposition = DispositionMoved
	} else {
		record.Disposition = DispositionCopied
	}

	if s.mctx.DryRun {
		fmt.Printf("[dry-run] would %s %s -> %s\n", mode, sourceAbs, dest)
		s.archived = append(s.archived, record)
		return record, nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		s.failures++
		return record, errors.Wrapf(err, errors.ErrDirCreate, "failed to create archive directory for %s", sourceAbs)
	}

	var err error
	if mode == ModeMove {
		err = movePath(sourceAbs, dest)
	} else {
		err = copyPath(sourceAbs, dest)
	}
	if err != nil {
		s.failures++
		s.logger.Error().Err(err).Str("path", sourceAbs).Msg("Archive failed, continuing with remaining paths")
		return record, errors.Wrapf(err, errors.ErrIOFailure, "failed to archive %s", sourceAbs)
	}

	s.archived = append(s.archived, record)
	s.logger.Info().Str("path", sourceAbs).Str("disposition", string(record.Disposition)).Msg("Path archived")
	return record, nil
}

// WriteMetadata writes a single-line text file into the session's
// metadata directory, e.g. previous-de.txt.
func (s *Session) WriteMetadata(name, value string) error {
	if s.mctx.DryRun {
		fmt.Printf("[dry-run] would write %s/%s: %s\n", MetadataDirName, name, value)
		return nil
	}
	path := filepath.Join(s.Root, MetadataDirName, name)
	if err := os.WriteFile(path, []byte(value+"\n"), 0644); err != nil {
		return errors.Wrapf(err, errors.ErrIOFailure, "failed to write metadata %s", name)
	}
	return nil
}

// ArchivedPaths returns the append-only record list in archival order.
func (s *Session) ArchivedPaths() []ArchivedPath {
	return s.archived
}

// Failures returns the number of per-path archive failures so far.
func (s *Session) Failures() int {
	return s.failures
}

// Context returns the migration context the session was started with.
func (s *Session) Context() types.MigrationContext {
	return s.mctx
}
