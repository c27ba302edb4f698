package config

type Storage struct {
	// UploadDir is where product images are written.
	UploadDir string `env:"STORAGE_UPLOAD_DIR" envDefault:"./uploads"`
}
