// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, files). It provides type-safe
// access to application settings needed by different components while keeping
// configuration details separate from business logic.
//
// Environment variables use the SUMMA_ prefix with underscores replacing the
// dots of nested keys, e.g. SUMMA_LLM_API_KEY for llm.api_key.
package config
