package constants

// Local storage keys. The schema annotation flows each own one key and
// never reconcile with each other; see the schema store for details.
const (
	StorageKeyAccessToken = "accessToken"
	StorageKeyDBSchema    = "dbSchema"
	StorageKeyTableData   = "tableData"
)

const (
	RelationOneToMany  = "OTM"
	RelationManyToOne  = "MTO"
	RelationOneToOne   = "OTO"
	RelationManyToMany = "MTM"
)
