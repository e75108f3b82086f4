package model

// ================ Config ================
type ServerConfig struct {
	Addr        string `envconfig:"HTTP_ADDR" default:":8080"`
	Environment string `envconfig:"APP_ENV" default:"development"`
}

type StoreConfig struct {
	DSN string `envconfig:"STORE_DSN" default:"file:hospitalbot.db"`
}

type OntologyConfig struct {
	Path string `envconfig:"ONTOLOGY_PATH"`
}

type NLUModelConfig struct {
	Model        string  `envconfig:"NLU_MODEL" default:"gemini-2.0-flash"`
	MaxTokens    int     `envconfig:"NLU_MAX_TOKENS" default:"512"`
	Temperature  float32 `envconfig:"NLU_TEMPERATURE" default:"0.1"`
	LanguageCode string  `envconfig:"NLU_LANGUAGE_CODE" default:"en"`
}

type SessionLockConfig struct {
	TTL           string `envconfig:"SESSION_LOCK_TTL" default:"5s"`
	RetryInterval string `envconfig:"SESSION_LOCK_RETRY" default:"25ms"`
}
