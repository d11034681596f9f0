package config

import "fmt"

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Canvas constraints
	MaxNodesPerCanvas int
	MaxEdgesPerCanvas int

	// Payload constraints
	MaxNameLength        int
	MaxDescriptionLength int
	MaxPromptLength      int

	// Session constraints
	DefaultGraphName string
	ContextWindow    int
	HistoryPageSize  int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		// Canvas constraints
		MaxNodesPerCanvas: 500,
		MaxEdgesPerCanvas: 2000,

		// Payload constraints
		MaxNameLength:        120,
		MaxDescriptionLength: 500,
		MaxPromptLength:      8000,

		// Session constraints
		DefaultGraphName: "default",
		ContextWindow:    10,
		HistoryPageSize:  20,
	}
}

// ProductionDomainConfig returns production-specific configuration
func ProductionDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More restrictive limits for production
	config.MaxNodesPerCanvas = 300
	config.MaxEdgesPerCanvas = 1200
	config.MaxPromptLength = 4000

	return config
}

// DevelopmentDomainConfig returns development-specific configuration
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()

	// More permissive for development
	config.MaxNodesPerCanvas = 5000
	config.MaxEdgesPerCanvas = 20000
	config.MaxPromptLength = 32000

	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "production":
		return ProductionDomainConfig()
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.MaxNodesPerCanvas <= 0 {
		return fmt.Errorf("MaxNodesPerCanvas must be positive, got %d", c.MaxNodesPerCanvas)
	}
	if c.MaxEdgesPerCanvas <= 0 {
		return fmt.Errorf("MaxEdgesPerCanvas must be positive, got %d", c.MaxEdgesPerCanvas)
	}
	if c.MaxNameLength <= 0 {
		return fmt.Errorf("MaxNameLength must be positive, got %d", c.MaxNameLength)
	}
	if c.ContextWindow <= 0 {
		return fmt.Errorf("ContextWindow must be positive, got %d", c.ContextWindow)
	}
	if c.HistoryPageSize <= 0 {
		return fmt.Errorf("HistoryPageSize must be positive, got %d", c.HistoryPageSize)
	}
	if c.DefaultGraphName == "" {
		return fmt.Errorf("DefaultGraphName cannot be empty")
	}
	return nil
}
