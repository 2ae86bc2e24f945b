package config

import (
	"time"

	"github.com/spf13/viper"
)

// operationDefaults holds per-operation generation defaults
type operationDefaults struct {
	timeout     time.Duration
	maxRetries  int
	temperature float64
	maxTokens   int
}

var defaultOperationSettings = map[Operation]operationDefaults{
	// Structured analyses want repeatable JSON
	OperationAnalyze:    {timeout: 60 * time.Second, maxRetries: 2, temperature: 0.2, maxTokens: 1500},
	OperationJobPosting: {timeout: 60 * time.Second, maxRetries: 2, temperature: 0.2, maxTokens: 1500},
	OperationMatch:      {timeout: 60 * time.Second, maxRetries: 2, temperature: 0.2, maxTokens: 1500},
	// Free text
	OperationCoverLetter: {timeout: 90 * time.Second, maxRetries: 2, temperature: 0.7, maxTokens: 2000},
	OperationTailor:      {timeout: 90 * time.Second, maxRetries: 2, temperature: 0.3, maxTokens: 2500},
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// AI Configuration - Global defaults
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.0-flash")
	v.SetDefault("ai.timeout", 60*time.Second)
	v.SetDefault("ai.apiKey", "")
	v.SetDefault("ai.maxRetries", 3)
	v.SetDefault("ai.temperature", 0.2)
	v.SetDefault("ai.maxTokens", 1500)
	v.SetDefault("ai.useSystemPrompts", true)

	for _, op := range Operations {
		d := defaultOperationSettings[op]
		prefix := "ai." + string(op) + "."

		v.SetDefault(prefix+"provider", "gemini")
		v.SetDefault(prefix+"model", "")
		v.SetDefault(prefix+"timeout", d.timeout)
		v.SetDefault(prefix+"apiKey", "")
		v.SetDefault(prefix+"maxRetries", d.maxRetries)
		v.SetDefault(prefix+"temperature", d.temperature)
		v.SetDefault(prefix+"maxTokens", d.maxTokens)
		v.SetDefault(prefix+"useSystemPrompts", true)

		v.SetDefault(prefix+"circuitBreaker.enabled", true)
		v.SetDefault(prefix+"circuitBreaker.maxRequests", 3)
		v.SetDefault(prefix+"circuitBreaker.interval", 60*time.Second)
		v.SetDefault(prefix+"circuitBreaker.timeout", 60*time.Second)
		v.SetDefault(prefix+"circuitBreaker.minRequests", 3)
		v.SetDefault(prefix+"circuitBreaker.failureThreshold", 0.6)
	}

	// Extraction
	v.SetDefault("extraction.maxFileSize", 10*1024*1024) // 10MB
	v.SetDefault("extraction.fallback", true)

	// Analysis cache
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.backend", CacheBackendMemory)
	v.SetDefault("cache.cacheErrors", false)
	v.SetDefault("cache.ttl", time.Duration(0))
	v.SetDefault("cache.keyPrefix", "resumelens:analysis:")
	v.SetDefault("cache.redis.address", "")
	v.SetDefault("cache.redis.password", "")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.poolSize", 10)
	v.SetDefault("cache.redis.dialTimeout", 5*time.Second)
	v.SetDefault("cache.redis.readTimeout", 3*time.Second)
	v.SetDefault("cache.redis.writeTimeout", 3*time.Second)

	// Server Configuration
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.readTimeout", 30*time.Second)
	v.SetDefault("server.writeTimeout", 120*time.Second) // model calls can be slow
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.maxRequestSize", 12*1024*1024)
	// API Authentication defaults
	v.SetDefault("server.apiKeys", []string{})
	// Rate limiting defaults
	v.SetDefault("server.rateLimit.enabled", false)
	v.SetDefault("server.rateLimit.requestsPerMin", 60)
	v.SetDefault("server.rateLimit.burstCapacity", 10)
	v.SetDefault("server.rateLimit.byIP", true)
	v.SetDefault("server.rateLimit.byAPIKey", false)
	v.SetDefault("server.rateLimit.window", time.Minute)
	// Prompt hot reload
	v.SetDefault("server.promptReload.enabled", true)
	v.SetDefault("server.promptReload.debounceDelay", time.Second)

	// App Configuration
	v.SetDefault("app.logLevel", "info")
	v.SetDefault("app.defaultFormat", "json")
	v.SetDefault("app.supportedFormats", []string{"json", "text", "markdown"})

	// Vault Configuration
	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.address", "")
	v.SetDefault("vault.token", "")
	v.SetDefault("vault.tokenFile", "")
	v.SetDefault("vault.namespace", "")
	v.SetDefault("vault.secrets.apiKeys", "")
	v.SetDefault("vault.secrets.geminiKey", "")
	v.SetDefault("vault.secrets.redisPassword", "")

	// Observability Configuration
	v.SetDefault("observability.enabled", true)
	v.SetDefault("observability.serviceName", "resumelens")
	v.SetDefault("observability.serviceVersion", "")  // Will use app version if empty
	v.SetDefault("observability.serviceInstance", "") // Will be auto-generated if empty
	v.SetDefault("observability.consoleOutput", false)
	v.SetDefault("observability.sampleRate", 1.0)

	v.SetDefault("observability.tracing.enabled", true)
	v.SetDefault("observability.tracing.sampleRate", 1.0)

	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.collectionInterval", 15*time.Second)

	v.SetDefault("observability.customMetrics.aiOperations.enabled", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackDuration", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackTokenUsage", true)
	v.SetDefault("observability.customMetrics.aiOperations.trackModelInfo", true)
	v.SetDefault("observability.customMetrics.businessMetrics.enabled", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackSuccessRates", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackContentSizes", true)
	v.SetDefault("observability.customMetrics.businessMetrics.trackCache", true)
	v.SetDefault("observability.customMetrics.infrastructure.enabled", true)
	v.SetDefault("observability.customMetrics.infrastructure.trackRateLimits", true)

	v.SetDefault("observability.console.enabled", false)
	v.SetDefault("observability.console.prettyPrint", true)

	v.SetDefault("observability.prometheus.enabled", true)
	v.SetDefault("observability.prometheus.endpoint", "/metrics")
	v.SetDefault("observability.prometheus.port", "9090")

	v.SetDefault("observability.otlp.enabled", false)
	v.SetDefault("observability.otlp.endpoint", "http://localhost:4318")
	v.SetDefault("observability.otlp.insecure", true)
	v.SetDefault("observability.otlp.headers", map[string]string{})

	v.SetDefault("observability.healthCheck.timeout", 15*time.Second)
	v.SetDefault("observability.healthCheck.aiModelCheckTimeout", 10*time.Second)
}
