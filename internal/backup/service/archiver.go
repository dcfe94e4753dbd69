// Package service implements the snapshot archiver: zip archives of the
// database file plus a plaintext metadata record.
package service

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/urbanfleet/fleetcore/internal/errors"
)

// databaseEntry is the fixed name of the database file inside an archive.
const databaseEntry = "database.db"

// metadataEntry is the fixed name of the metadata record inside an archive.
const metadataEntry = "metadata.json"

// Metadata is the plaintext record written next to the database copy. It
// intentionally carries no protected fields; the database copy itself holds
// ciphertext only.
type Metadata struct {
	Ref       string           `json:"ref"`
	CreatedBy string           `json:"created_by"`
	Role      string           `json:"role"`
	CreatedAt time.Time        `json:"created_at"`
	Tables    map[string]int64 `json:"tables"`
}

// Archiver creates and unpacks snapshot archives under a fixed directory.
type Archiver struct {
	backupDir string
}

// NewArchiver creates a new Archiver.
func NewArchiver(backupDir string) *Archiver {
	return &Archiver{backupDir: backupDir}
}

// Path returns the archive path for a snapshot reference.
func (a *Archiver) Path(ref string) string {
	return filepath.Join(a.backupDir, ref+".zip")
}

// Exists reports whether an archive exists for the reference.
func (a *Archiver) Exists(ref string) bool {
	_, err := os.Stat(a.Path(ref))
	return err == nil
}

// Create writes a new archive containing the database file and the metadata
// record. Returns the archive path.
func (a *Archiver) Create(dbPath string, meta Metadata) (string, error) {
	if err := os.MkdirAll(a.backupDir, 0o750); err != nil {
		return "", apperrors.Wrap(err, "failed to create backup directory")
	}

	archivePath := a.Path(meta.Ref)
	out, err := os.OpenFile(archivePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to create backup archive")
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	metaWriter, err := zw.Create(metadataEntry)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to add metadata entry")
	}
	encoder := json.NewEncoder(metaWriter)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(meta); err != nil {
		return "", apperrors.Wrap(err, "failed to write metadata entry")
	}

	dbWriter, err := zw.Create(databaseEntry)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to add database entry")
	}
	src, err := os.Open(dbPath)
	if err != nil {
		return "", apperrors.Wrap(err, "failed to open database file")
	}
	defer src.Close()
	if _, err := io.Copy(dbWriter, src); err != nil {
		return "", apperrors.Wrap(err, "failed to copy database file")
	}

	if err := zw.Close(); err != nil {
		return "", apperrors.Wrap(err, "failed to finalize backup archive")
	}

	return archivePath, nil
}

// ReadMetadata loads the metadata record from an archive.
func (a *Archiver) ReadMetadata(ref string) (*Metadata, error) {
	zr, err := zip.OpenReader(a.Path(ref))
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open backup archive")
	}
	defer zr.Close()

	for _, file := range zr.File {
		if file.Name != metadataEntry {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to open metadata entry")
		}
		defer rc.Close()

		meta := &Metadata{}
		if err := json.NewDecoder(rc).Decode(meta); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode metadata entry")
		}
		return meta, nil
	}

	return nil, apperrors.New("backup archive has no metadata entry")
}

// Restore unpacks the database copy from the archive over the live file. The
// copy is written to a temporary file first and renamed into place, so a
// failed extraction never leaves a half-written database.
func (a *Archiver) Restore(ref, dbPath string) error {
	zr, err := zip.OpenReader(a.Path(ref))
	if err != nil {
		return apperrors.Wrap(err, "failed to open backup archive")
	}
	defer zr.Close()

	for _, file := range zr.File {
		if file.Name != databaseEntry {
			continue
		}
		return a.extractDatabase(file, dbPath)
	}

	return apperrors.New("backup archive has no database entry")
}

func (a *Archiver) extractDatabase(file *zip.File, dbPath string) error {
	rc, err := file.Open()
	if err != nil {
		return apperrors.Wrap(err, "failed to open database entry")
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dbPath), ".restore-*")
	if err != nil {
		return apperrors.Wrap(err, "failed to create temporary database file")
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return apperrors.Wrap(err, "failed to extract database file")
	}
	if err := tmp.Close(); err != nil {
		return apperrors.Wrap(err, "failed to close temporary database file")
	}

	if err := os.Rename(tmp.Name(), dbPath); err != nil {
		return apperrors.Wrap(err, "failed to replace database file")
	}

	return nil
}
