package config

import "time"

type Auth struct {
	// SessionSecret signs the session cookie tokens.
	SessionSecret string        `env:"AUTH_SESSION_SECRET,required"`
	SessionTTL    time.Duration `env:"AUTH_SESSION_TTL" envDefault:"720h"`
	CookieName    string        `env:"AUTH_COOKIE_NAME" envDefault:"catalog_session"`
	CookieSecure  bool          `env:"AUTH_COOKIE_SECURE" envDefault:"false"`
	BcryptCost    int           `env:"AUTH_BCRYPT_COST" envDefault:"10"`
}
