package shelf

import (
	"bytes"
	"encoding/gob"

	"github.com/carbocation/pfx"

	"github.com/KyungWonPark/RestingConnectome/internal/connectome"
)

// SaveSubjects stores every subject, gob-encoded, under its name.
func SaveSubjects(s Store, subjects []connectome.Subject) error {
	for _, subject := range subjects {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(subject); err != nil {
			return pfx.Err(err)
		}
		if err := s.Put(subject.Name, buf.Bytes()); err != nil {
			return err
		}
	}
	return nil
}

// LoadSubjects decodes every subject on the shelf, in key order.
func LoadSubjects(s Store) ([]connectome.Subject, error) {
	keys, err := s.Keys()
	if err != nil {
		return nil, err
	}

	subjects := make([]connectome.Subject, 0, len(keys))
	for _, key := range keys {
		raw, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		var subject connectome.Subject
		if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&subject); err != nil {
			return nil, pfx.Err(err)
		}
		subjects = append(subjects, subject)
	}
	return subjects, nil
}
