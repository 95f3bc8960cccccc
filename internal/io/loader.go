package io

import (
	"errors"
	"os"
	"path/filepath"
	"sort"

	"github.com/carbocation/pfx"
	"github.com/sirupsen/logrus"

	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
)

// MetadataFile is the metadata table expected at the data root.
const MetadataFile = "metadata.csv"

// LoadSubjects reads root/<subject>/<SCAN>.npz for every recognized scan code
// and attaches the metadata from root/metadata.csv when it exists. Subject
// directories without any scan archive are skipped.
func LoadSubjects(root string, log logrus.FieldLogger) ([]connectome.Subject, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, pfx.Err(err)
	}

	meta := map[string]connectome.Metadata{}
	if _, err := os.Stat(filepath.Join(root, MetadataFile)); err == nil {
		if meta, err = ReadMetadata(filepath.Join(root, MetadataFile)); err != nil {
			return nil, err
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, pfx.Err(err)
	}

	var subjects []connectome.Subject
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		subject := connectome.Subject{Name: entry.Name(), Metadata: meta[entry.Name()]}
		for _, code := range connectome.ScanCodes() {
			file := filepath.Join(root, entry.Name(), code+".npz")
			if _, err := os.Stat(file); errors.Is(err, os.ErrNotExist) {
				continue
			}

			scan, err := ReadScan(file, code)
			if err != nil {
				return nil, err
			}
			subject.Scans = append(subject.Scans, scan)
		}

		if len(subject.Scans) == 0 {
			log.WithField("subject", entry.Name()).Warn("no scan archives, skipping")
			continue
		}
		if subject.Metadata == nil {
			log.WithField("subject", entry.Name()).Warn("no metadata row")
		}
		subjects = append(subjects, subject)
	}

	sort.Slice(subjects, func(i, j int) bool { return subjects[i].Name < subjects[j].Name })
	log.WithFields(logrus.Fields{"root": root, "subjects": len(subjects)}).Info("subjects loaded")
	return subjects, nil
}
