package constants

const (
	DatabaseTypePostgreSQL = "POSTGRESQL"
	DatabaseTypeMySQL      = "MYSQL"
	DatabaseTypeOracle     = "ORACLE"
)

// SupportedDatabaseTypes lists the types the platform accepts for a
// data source, in the order they are presented to the user.
var SupportedDatabaseTypes = []string{
	DatabaseTypePostgreSQL,
	DatabaseTypeMySQL,
	DatabaseTypeOracle,
}

func IsSupportedDatabaseType(databaseType string) bool {
	for _, t := range SupportedDatabaseTypes {
		if t == databaseType {
			return true
		}
	}
	return false
}
