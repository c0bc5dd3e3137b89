package interfaces

import "context"

// Pinger is satisfied by *sql.DB and by stores that can report liveness
type Pinger interface {
	PingContext(ctx context.Context) error
}
