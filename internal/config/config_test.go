package config

import (
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	Describe("DefaultConfig", func() {
		It("returns the spec-mandated defaults", func() {
			c := DefaultConfig()

			Expect(c.PipelineTier).To(Equal(TierA))
			Expect(c.MaxConcurrentFetches).To(Equal(50))
			Expect(c.PerDomainConcurrency).To(Equal(3))
			Expect(c.FetchTimeoutSeconds).To(Equal(30))
			Expect(c.RequestDelaySeconds).To(Equal(0.25))
			Expect(c.MinHashNumPerm).To(Equal(128))
			Expect(c.MinHashThreshold).To(Equal(0.8))
			Expect(c.EmbeddingDimension).To(Equal(384))
		})
	})

	Describe("LoadFromEnv", func() {
		var saved map[string]string
		keys := []string{
			"DATABASE_URL", "PIPELINE_TIER", "MAX_CONCURRENT_FETCHES",
			"PER_DOMAIN_CONCURRENCY", "MINHASH_THRESHOLD", "RAILWAY_ENVIRONMENT",
			"PIPELINE_API_KEY",
		}

		BeforeEach(func() {
			saved = map[string]string{}
			for _, k := range keys {
				saved[k] = os.Getenv(k)
				os.Unsetenv(k)
			}
		})

		AfterEach(func() {
			for k, v := range saved {
				if v == "" {
					os.Unsetenv(k)
				} else {
					os.Setenv(k, v)
				}
			}
		})

		It("overlays valid environment variables", func() {
			os.Setenv("DATABASE_URL", "postgres://test")
			os.Setenv("PIPELINE_TIER", "b")
			os.Setenv("MAX_CONCURRENT_FETCHES", "10")
			os.Setenv("MINHASH_THRESHOLD", "0.9")

			c := DefaultConfig()
			c.LoadFromEnv()

			Expect(c.DatabaseURL).To(Equal("postgres://test"))
			Expect(c.PipelineTier).To(Equal(TierB))
			Expect(c.MaxConcurrentFetches).To(Equal(10))
			Expect(c.MinHashThreshold).To(Equal(0.9))
		})

		It("keeps the default when an int var is unparsable", func() {
			os.Setenv("MAX_CONCURRENT_FETCHES", "not-a-number")
			c := DefaultConfig()
			original := c.MaxConcurrentFetches
			c.LoadFromEnv()
			Expect(c.MaxConcurrentFetches).To(Equal(original))
		})

		It("keeps the default tier when the value is not A/B/C", func() {
			os.Setenv("PIPELINE_TIER", "Z")
			c := DefaultConfig()
			c.LoadFromEnv()
			Expect(c.PipelineTier).To(Equal(TierA))
		})
	})

	Describe("Validate", func() {
		It("fails when production is missing an API key", func() {
			c := DefaultConfig()
			c.DatabaseURL = "postgres://test"
			c.RailwayEnvironment = "production"
			c.PipelineAPIKey = ""

			err := c.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("PIPELINE_API_KEY"))
		})

		It("passes when production has an API key", func() {
			c := DefaultConfig()
			c.DatabaseURL = "postgres://test"
			c.RailwayEnvironment = "production"
			c.PipelineAPIKey = "secret"

			Expect(c.Validate()).To(Succeed())
		})

		It("fails when required fields are empty outside production", func() {
			c := DefaultConfig()
			err := c.Validate()
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("LoadFromFile", func() {
		It("overlays a YAML document onto the defaults", func() {
			f, err := os.CreateTemp("", "pipeline-config-*.yaml")
			Expect(err).NotTo(HaveOccurred())
			defer os.Remove(f.Name())
			_, err = f.WriteString("database_url: postgres://from-file\npipeline_tier: B\nmin_content_length: 500\n")
			Expect(err).NotTo(HaveOccurred())
			Expect(f.Close()).To(Succeed())

			c := DefaultConfig()
			Expect(c.LoadFromFile(f.Name())).To(Succeed())

			Expect(c.DatabaseURL).To(Equal("postgres://from-file"))
			Expect(c.PipelineTier).To(Equal(TierB))
			Expect(c.MinContentLength).To(Equal(500))
		})

		It("returns an error for a missing file", func() {
			c := DefaultConfig()
			Expect(c.LoadFromFile("/nonexistent/pipeline-config.yaml")).To(HaveOccurred())
		})
	})
})
