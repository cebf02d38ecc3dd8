package mailbox

import "context"

// Source port (interface untuk kotak masuk)
type Source interface {
	List(ctx context.Context) ([]Email, error)
}
