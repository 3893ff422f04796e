package main

import (
	"bytes"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/rsms/semantria/semantria"
	"gopkg.in/yaml.v2"
)

// Used when there's no config file. Credentials come from the environment.
const defaultConfigYAML = `
consumer-key: $(SEMANTRIA_CONSUMER_KEY)
consumer-secret: $(SEMANTRIA_CONSUMER_SECRET)
config-id: $(SEMANTRIA_CONFIG_ID:)
data-dir: $(SEMANTRIA_DIR:./data)
`

type Config struct {
	ConsumerKey    string        `yaml:"consumer-key"`
	ConsumerSecret string        `yaml:"consumer-secret"`
	Host           string        `yaml:"host"`
	ConfigId       string        `yaml:"config-id"`    // used when a command takes an optional config
	DataDir        string        `yaml:"data-dir"`     // where results are stored
	PollInterval   time.Duration `yaml:"poll-interval"` // e.g. 2s, 500ms
	PollTimeout    time.Duration `yaml:"poll-timeout"`
	Concurrency    int           `yaml:"concurrency"` // max batches in flight

	_filename string // non-empty when loaded from file
}

// LoadConfig reads filename, or the built-in default config if filename
// does not exist.
func LoadConfig(filename string) (*Config, error) {
	c := &Config{}
	f, err := os.Open(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		return c, c.Load(strings.NewReader(defaultConfigYAML), "")
	}
	defer f.Close()
	return c, c.Load(f, filename)
}

func (c *Config) GetSourceFilename() string { return c._filename }

func (c *Config) YAMLString() string {
	c2 := *c
	if c2.ConsumerSecret != "" {
		c2.ConsumerSecret = "***"
	}
	data, _ := yaml.Marshal(&c2)
	return string(data)
}

func (c *Config) Load(r io.Reader, filename string) error {
	c._filename = filename

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return err
	}
	if err := yaml.Unmarshal(buf.Bytes(), c); err != nil {
		return err
	}

	// replace $(NAME) or $(NAME:default) with env vars
	re := regexp.MustCompile(`\$\([A-Za-z0-9_][^):]*(?::[^)]*|)\)`)
	var envNotFound []string
	subEnvVars := func(str string) string {
		return re.ReplaceAllStringFunc(str, func(s string) string {
			name := s[2 : len(s)-1]
			defaultValue := ""
			defaultIndex := strings.IndexByte(name, ':')
			if defaultIndex >= 0 {
				defaultValue = name[defaultIndex+1:]
				name = name[:defaultIndex]
			}
			name = strings.TrimSpace(name)
			value, found := os.LookupEnv(name)
			if !found {
				if defaultIndex >= 0 {
					value = defaultValue
				} else {
					envNotFound = append(envNotFound, name)
				}
			}
			return value
		})
	}
	for _, p := range []*string{&c.ConsumerKey, &c.ConsumerSecret, &c.Host, &c.ConfigId, &c.DataDir} {
		*p = subEnvVars(*p)
	}
	if len(envNotFound) > 0 {
		if len(envNotFound) == 1 {
			return errorf("variable not found in environment: %q", envNotFound[0])
		}
		return errorf("variables not found in environment: %q", envNotFound)
	}

	// defaults
	if c.Host == "" {
		c.Host = semantria.DefaultHost
	}
	if c.DataDir == "" {
		c.DataDir = "./data"
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = time.Minute
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}

	return c.Validate()
}

func (c *Config) Validate() error {
	var missing []string
	if c.ConsumerKey == "" {
		missing = append(missing, "consumer-key")
	}
	if c.ConsumerSecret == "" {
		missing = append(missing, "consumer-secret")
	}
	if len(missing) > 0 {
		return errorf("missing %s %s", plural(len(missing), "setting", "settings"),
			strings.Join(missing, ", "))
	}
	return nil
}

// NewClient creates a client configured with c
func (c *Config) NewClient() *semantria.Client {
	client := semantria.NewClient(&semantria.ClientParams{
		ConsumerKey:    c.ConsumerKey,
		ConsumerSecret: c.ConsumerSecret,
	})
	client.Host = c.Host
	client.Concurrency = c.Concurrency
	return client
}
