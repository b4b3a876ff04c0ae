package searchindex

const (
	EdmString         = "Edm.String"
	EdmInt64          = "Edm.Int64"
	EdmDateTimeOffset = "Edm.DateTimeOffset"
)

const (
	FieldID                  = "id"
	FieldName                = "name"
	FieldContent             = "content"
	FieldStoragePath         = "metadata_storage_path"
	FieldStorageSize         = "metadata_storage_size"
	FieldStorageLastModified = "metadata_storage_last_modified"
)

type Field struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Key        bool   `json:"key"`
	Searchable bool   `json:"searchable"`
}

type Index struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// DefaultFields is the schema the blob indexer populates. The metadata_storage_*
// fields are filled in by the indexer from blob properties.
func DefaultFields() []Field {
	return []Field{
		{Name: FieldID, Type: EdmString, Key: true, Searchable: false},
		{Name: FieldName, Type: EdmString, Searchable: true},
		{Name: FieldContent, Type: EdmString, Searchable: true},
		{Name: FieldStoragePath, Type: EdmString, Searchable: false},
		{Name: FieldStorageSize, Type: EdmInt64, Searchable: false},
		{Name: FieldStorageLastModified, Type: EdmDateTimeOffset, Searchable: false},
	}
}

func DefaultIndex(name string) Index {
	return Index{Name: name, Fields: DefaultFields()}
}
