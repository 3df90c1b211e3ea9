package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/flowforge/internal/api/auth"
	"github.com/flowforge/internal/config"
)

// ConfigCheckResult holds the result of configuration validation
type ConfigCheckResult struct {
	Missing  []string          // Required settings that are missing
	Present  map[string]string // Effective settings, secrets masked
	Warnings []string          // Non-fatal warnings
}

// CheckRequiredConfig reports which required settings are missing and what
// the effective values of the others are.
func CheckRequiredConfig(cfg *config.Config) *ConfigCheckResult {
	result := &ConfigCheckResult{
		Missing:  []string{},
		Present:  make(map[string]string),
		Warnings: []string{},
	}

	secrets := map[string]string{
		"llm.api_key":    cfg.LLM.APIKey,
		"admin.password": cfg.Admin.Password,
	}
	for key, val := range secrets {
		if val == "" {
			result.Missing = append(result.Missing, key)
		} else {
			result.Present[key] = maskSecret(val)
		}
	}
	sort.Strings(result.Missing)

	if cfg.Admin.JWTSecret != "" {
		result.Present["admin.jwt_secret"] = maskSecret(cfg.Admin.JWTSecret)
	} else {
		result.Warnings = append(result.Warnings, "admin.jwt_secret is not set; admin sessions end on restart")
	}
	if cfg.Admin.Password != "" && !auth.IsBcryptHash(cfg.Admin.Password) {
		result.Warnings = append(result.Warnings, "admin.password is stored in plaintext; consider a bcrypt hash")
	}
	if !cfg.LLM.HasModel(cfg.LLM.ValidationModel) {
		result.Warnings = append(result.Warnings, fmt.Sprintf("llm.validation_model %q is not in llm.models", cfg.LLM.ValidationModel))
	}

	result.Present["server.port"] = strconv.Itoa(cfg.Server.Port)
	result.Present["prompts.dir"] = cfg.Prompts.Dir
	result.Present["llm.backend"] = cfg.LLM.Backend
	result.Present["llm.base_url"] = cfg.LLM.BaseURL
	result.Present["llm.models"] = strings.Join(cfg.LLM.Models, ", ")
	result.Present["llm.validation_model"] = cfg.LLM.ValidationModel
	result.Present["llm.timeout"] = cfg.LLM.Timeout.String()
	result.Present["log.level"] = cfg.Log.Level

	return result
}

// PrintConfigCheck prints the configuration check results
func PrintConfigCheck(w io.Writer, result *ConfigCheckResult) {
	fmt.Fprintln(w, "=== Configuration Check ===")
	fmt.Fprintln(w, "")

	if len(result.Missing) > 0 {
		fmt.Fprintln(w, "❌ Missing required settings:")
		for _, v := range result.Missing {
			fmt.Fprintf(w, "   - %s\n", v)
		}
		fmt.Fprintln(w, "")
	}

	if len(result.Present) > 0 {
		keys := make([]string, 0, len(result.Present))
		for k := range result.Present {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		fmt.Fprintln(w, "✓ Configured settings:")
		for _, k := range keys {
			fmt.Fprintf(w, "   - %s = %s\n", k, result.Present[k])
		}
		fmt.Fprintln(w, "")
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "⚠ Warning: %s\n", warning)
	}

	if len(result.Missing) == 0 {
		fmt.Fprintln(w, "✓ All required configuration is present")
	}

	fmt.Fprintln(w, "============================")
}

// maskSecret masks a secret value for display, showing only first and last 2 chars
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}

// LoadEnvFile loads environment variables from a file, overwriting existing ones.
func LoadEnvFile(filename string) error {
	return godotenv.Overload(filename)
}
