package discovery

import "context"

// Repository port (interface untuk persistence laporan)
type Repository interface {
	Save(ctx context.Context, r *Report) error
	Get(ctx context.Context, id ReportID) (*Report, error)
	Latest(ctx context.Context, limit int) ([]*Report, error)
}

// ArtifactStore port (interface untuk penyimpanan file laporan)
type ArtifactStore interface {
	Put(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// ReportCache port (cache laporan terakhir)
type ReportCache interface {
	SetLatest(ctx context.Context, r *Report) error
	Latest(ctx context.Context) (*Report, bool, error)
}

// Recorder receives every completed run.
type Recorder interface {
	Record(ctx context.Context, run Run) (*Report, error)
}
