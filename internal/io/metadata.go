package io

import (
	"os"

	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"

	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
)

// MetadataRow is one line of metadata.csv.
type MetadataRow struct {
	Subject string `csv:"Subject"`
	Gender  string `csv:"Gender"`
	Age     string `csv:"Age"`
}

// ReadMetadata reads a Subject,Gender,Age table keyed by subject.
func ReadMetadata(file string) (map[string]connectome.Metadata, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	rows := []*MetadataRow{}
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, pfx.Err(err)
	}

	out := make(map[string]connectome.Metadata, len(rows))
	for _, row := range rows {
		out[row.Subject] = connectome.Metadata{"Gender": row.Gender, "Age": row.Age}
	}
	return out, nil
}
