// Package config provides configuration loading for the log classification
// service.
//
// Configuration is read from environment variables prefixed with LOGCLS_ and,
// when present, a YAML file (config.yaml, configs/config.yaml, or the path in
// LOGCLS_CONFIG_FILE). Environment values take precedence over the file;
// struct tag defaults apply when neither sets a value.
//
//	LOGCLS_SERVER_PORT=8080
//	LOGCLS_CLASSIFIER_WORKERS=4
//	LOGCLS_LLM_API_KEY=...   (GROQ_API_KEY is used as a fallback)
//
// Paths are resolved against Paths.BaseDir by ResolvePaths.
package config
