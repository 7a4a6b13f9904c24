package cassandra

// Statements are unqualified; the keyspace is fixed on the cluster config.
const (
	cqlProbe = `SELECT now() FROM system.local`

	cqlInsertUser     = `INSERT INTO users (user_id, username, email, password_hash, description, interests, created_at, updated_at, last_login) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	cqlSelectUserByID = `SELECT user_id, username, email, password_hash, description, interests, created_at, updated_at, last_login FROM users WHERE user_id = ?`
	cqlSelectUsers    = `SELECT user_id, username, email, password_hash, description, interests, created_at, updated_at, last_login FROM users`
	cqlDeleteUser     = `DELETE FROM users WHERE user_id = ? IF EXISTS`

	// Conditional so a login racing a delete cannot recreate the row.
	cqlUpdateLastLogin = `UPDATE users SET last_login = ?, updated_at = ? WHERE user_id = ? IF EXISTS`

	cqlSelectEmailIndex = `SELECT user_id FROM email_index WHERE email = ?`
	cqlInsertEmailIndex = `INSERT INTO email_index (email, user_id) VALUES (?, ?) IF NOT EXISTS`
	cqlDeleteEmailIndex = `DELETE FROM email_index WHERE email = ? IF user_id = ?`

	cqlInsertEvent         = `INSERT INTO events (group_id, start_time, event_id, title, description, end_time, lat, lon, location, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	cqlSelectEvent         = `SELECT group_id, start_time, event_id, title, description, end_time, lat, lon, location, created_at, updated_at FROM events WHERE group_id = ? AND start_time = ? AND event_id = ?`
	cqlSelectEventsByGroup = `SELECT group_id, start_time, event_id, title, description, end_time, lat, lon, location, created_at, updated_at FROM events WHERE group_id = ?`
	cqlDeleteEvent         = `DELETE FROM events WHERE group_id = ? AND start_time = ? AND event_id = ? IF EXISTS`
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id uuid PRIMARY KEY,
		username text,
		email text,
		password_hash text,
		description text,
		interests list<text>,
		created_at bigint,
		updated_at bigint,
		last_login bigint
	)`,
	`CREATE TABLE IF NOT EXISTS email_index (
		email text PRIMARY KEY,
		user_id uuid
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		group_id uuid,
		start_time bigint,
		event_id uuid,
		title text,
		description text,
		end_time bigint,
		lat double,
		lon double,
		location text,
		created_at bigint,
		updated_at bigint,
		PRIMARY KEY ((group_id), start_time, event_id)
	) WITH CLUSTERING ORDER BY (start_time ASC, event_id ASC)`,
}
