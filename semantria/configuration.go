package semantria

import (
	"context"
	"encoding/json"
)

const configurationsPath = "/configurations.json"

// Configuration is a server-side analysis profile. Its fields are defined by
// the service and passed through untouched.
type Configuration map[string]interface{}

// ID returns the "config_id" field, or "" if it is missing or not a string
func (c Configuration) ID() string {
	s, _ := c["config_id"].(string)
	return s
}

// RetrieveConfigurations fetches all configurations.
//
// filter is either empty or a (name, value) pair. With a pair, only
// configurations whose name field equals value are returned, in the order
// the service listed them.
func (c *Client) RetrieveConfigurations(ctx context.Context, filter ...string) ([]Configuration, error) {
	if len(filter) != 0 && len(filter) != 2 {
		return nil, ErrFilterParams
	}
	b, err := c.GET(ctx, c.endpoint(configurationsPath, ""), nil)
	if err != nil {
		return nil, err
	}
	var configs []Configuration
	if err := json.Unmarshal(b, &configs); err != nil {
		return nil, err
	}
	if len(filter) == 0 {
		return configs, nil
	}
	name, value := filter[0], filter[1]
	matches := []Configuration{}
	for _, config := range configs {
		if v, ok := config[name]; ok && v == interface{}(value) {
			matches = append(matches, config)
		}
	}
	return matches, nil
}

// UpdateConfiguration creates or updates configurations. config is sent as-is.
func (c *Client) UpdateConfiguration(ctx context.Context, config interface{}) ([]byte, error) {
	return c.POST(ctx, c.endpoint(configurationsPath, ""), config)
}

// DeleteConfiguration removes the configurations with the given ids
func (c *Client) DeleteConfiguration(ctx context.Context, ids []string) ([]byte, error) {
	return c.DELETE(ctx, c.endpoint(configurationsPath, ""), ids)
}
