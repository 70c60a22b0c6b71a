package archivesspace

// The structs here carry only the fields cascflow reads and writes.
// ArchivesSpace records hold many more; anything not listed is out of
// scope for the staging pipeline.

// FileVersion is one reference to a digital file, keyed by its URI
type FileVersion struct {
	FileURI          string `json:"file_uri"`
	Publish          bool   `json:"publish"`
	IsRepresentative bool   `json:"is_representative"`
	UseStatement     string `json:"use_statement,omitempty"`
}

// DigitalObject links a catalog record to its digital file representations
type DigitalObject struct {
	URI               string        `json:"uri,omitempty"`
	DigitalObjectID   string        `json:"digital_object_id"`
	Title             string        `json:"title"`
	DigitalObjectType string        `json:"digital_object_type,omitempty"`
	Publish           bool          `json:"publish"`
	FileVersions      []FileVersion `json:"file_versions"`
}

// DigitalObjectRef is an instance's reference to a digital object,
// optionally resolved inline by the API
type DigitalObjectRef struct {
	Ref      string         `json:"ref"`
	Resolved *DigitalObject `json:"_resolved,omitempty"`
}

// Instance attaches containers or digital objects to an archival object
type Instance struct {
	InstanceType  string            `json:"instance_type"`
	DigitalObject *DigitalObjectRef `json:"digital_object,omitempty"`
}

// AncestorRecord is the resolved form of one ancestry entry
type AncestorRecord struct {
	Title         string `json:"title,omitempty"`
	DisplayString string `json:"display_string,omitempty"`
	ComponentID   string `json:"component_id,omitempty"`
	ID0           string `json:"id_0,omitempty"`
}

// Ancestor is one entry in an archival object's ancestry chain
type Ancestor struct {
	Ref      string          `json:"ref"`
	Level    string          `json:"level"`
	Resolved *AncestorRecord `json:"_resolved,omitempty"`
}

// Repository is the resolved owning repository of a record
type Repository struct {
	Name     string `json:"name"`
	RepoCode string `json:"repo_code"`
}

// RepositoryRef is a record's reference to its repository
type RepositoryRef struct {
	Ref      string      `json:"ref"`
	Resolved *Repository `json:"_resolved,omitempty"`
}

// ArchivalObject is a catalog record describing one archival unit
type ArchivalObject struct {
	URI           string         `json:"uri,omitempty"`
	ComponentID   string         `json:"component_id"`
	Title         string         `json:"title,omitempty"`
	DisplayString string         `json:"display_string,omitempty"`
	Level         string         `json:"level,omitempty"`
	Repository    *RepositoryRef `json:"repository,omitempty"`
	Ancestors     []Ancestor     `json:"ancestors,omitempty"`
	Instances     []Instance     `json:"instances"`
}

// ref is the shape returned by find_by_id endpoints
type ref struct {
	Ref string `json:"ref"`
}

type findArchivalObjectsResponse struct {
	ArchivalObjects []ref `json:"archival_objects"`
}

type findResourcesResponse struct {
	Resources []ref `json:"resources"`
}

type loginResponse struct {
	Session string `json:"session"`
}

// PostResult captures the parts of an ArchivesSpace create/update
// response the pipeline branches on. Error maps field names to
// violation messages, e.g. {"digital_object_id": ["Must be unique"]}.
type PostResult struct {
	Status     string              `json:"status,omitempty"`
	URI        string              `json:"uri,omitempty"`
	Error      map[string][]string `json:"error,omitempty"`
	StatusCode int                 `json:"-"`
}
