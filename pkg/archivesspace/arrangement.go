package archivesspace

import (
	"github.com/caltechlibrary/cascflow/pkg/errors"
)

// Arrangement is a flattened, read-only view of an archival object's
// ancestry chain, one field set per level plus the record's own
// level and title. It is recomputed for every resolved record.
type Arrangement struct {
	RepositoryName string
	RepositoryCode string

	ArchivalObjectDisplayString string
	ArchivalObjectLevel         string
	ArchivalObjectTitle         string

	CollectionTitle string
	CollectionID    string
	CollectionURI   string

	SeriesDisplayString string
	SeriesID            string
	SeriesTitle         string
	SeriesURI           string

	SubseriesDisplayString string
	SubseriesID            string
	SubseriesTitle         string
	SubseriesURI           string

	FileDisplayString string
	FileID            string
	FileTitle         string
	FileURI           string
}

// BuildArrangement aggregates the arrangement levels for a record.
// The record must carry its resolved repository; ancestors that were
// not resolved inline contribute nothing.
func BuildArrangement(record *ArchivalObject) (*Arrangement, error) {
	if record.Repository == nil || record.Repository.Resolved == nil {
		return nil, errors.Newf(errors.ErrInvalidInput,
			"record %s is missing its resolved repository", record.ComponentID)
	}

	arrangement := &Arrangement{
		RepositoryName:              record.Repository.Resolved.Name,
		RepositoryCode:              record.Repository.Resolved.RepoCode,
		ArchivalObjectDisplayString: record.DisplayString,
		ArchivalObjectLevel:         record.Level,
		ArchivalObjectTitle:         record.Title,
	}

	for _, ancestor := range record.Ancestors {
		if ancestor.Resolved == nil {
			continue
		}
		switch ancestor.Level {
		case "collection":
			arrangement.CollectionTitle = ancestor.Resolved.Title
			arrangement.CollectionID = ancestor.Resolved.ID0
			arrangement.CollectionURI = ancestor.Ref
		case "series":
			arrangement.SeriesDisplayString = ancestor.Resolved.DisplayString
			arrangement.SeriesID = ancestor.Resolved.ComponentID
			arrangement.SeriesTitle = ancestor.Resolved.Title
			arrangement.SeriesURI = ancestor.Ref
		case "subseries":
			arrangement.SubseriesDisplayString = ancestor.Resolved.DisplayString
			arrangement.SubseriesID = ancestor.Resolved.ComponentID
			arrangement.SubseriesTitle = ancestor.Resolved.Title
			arrangement.SubseriesURI = ancestor.Ref
		case "file":
			arrangement.FileDisplayString = ancestor.Resolved.DisplayString
			arrangement.FileID = ancestor.Resolved.ComponentID
			arrangement.FileTitle = ancestor.Resolved.Title
			arrangement.FileURI = ancestor.Ref
		}
	}
	return arrangement, nil
}
