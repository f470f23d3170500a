package testing

// DBParams locates the databases used by repo integration tests.
type DBParams struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

// PostgresParams reads POSTGRES_HOST/POSTGRES_PORT/POSTGRES_DB/POSTGRES_USER/POSTGRES_PASS.
func PostgresParams() DBParams {
	return DBParams{
		Host:     envOr("POSTGRES_HOST", "localhost"),
		Port:     envOr("POSTGRES_PORT", "5432"),
		Name:     envOr("POSTGRES_DB", "gymplanner"),
		User:     envOr("POSTGRES_USER", "postgres"),
		Password: envOr("POSTGRES_PASS", ""),
	}
}

// MysqlParams reads MYSQL_HOST/MYSQL_PORT/MYSQL_DB/MYSQL_USER/MYSQL_PASS.
func MysqlParams() DBParams {
	return DBParams{
		Host:     envOr("MYSQL_HOST", "localhost"),
		Port:     envOr("MYSQL_PORT", "3306"),
		Name:     envOr("MYSQL_DB", "gymplanner"),
		User:     envOr("MYSQL_USER", "root"),
		Password: envOr("MYSQL_PASS", ""),
	}
}
