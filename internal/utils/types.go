package utils

// StreamJob is one URL to resolve and download. A playlist URL expands into
// several downloads that share the job.
type StreamJob struct {
	ID        string
	URL       string
	OutputDir string
	Format    string // empty selects each item's default format
	Referer   string
	UploadTo  string // optional s3://bucket/prefix
}

type BatchEntry struct {
	OutputPath string `yaml:"op"`
	URL        string `yaml:"link"`
	Format     string `yaml:"format"`
	Referer    string `yaml:"referer"`
}
