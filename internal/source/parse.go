package source

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/bucketry/bucketry/internal/store"
)

// parseConfigList extracts a list of experiment configs from a bulk response
// body of the shape {"<field>": [{key, version, variants}, ...]}.
func parseConfigList(raw []byte, field string) ([]store.Config, error) {
	items := gjson.GetBytes(raw, field)
	if !items.Exists() {
		return nil, nil
	}

	configs := make([]store.Config, 0, int(items.Get("#").Int()))
	var parseErr error
	items.ForEach(func(_, item gjson.Result) bool {
		cfg, err := parseConfig(item)
		if err != nil {
			parseErr = err
			return false
		}
		configs = append(configs, cfg)
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return configs, nil
}

// parseConfig builds one store.Config from a JSON object.
func parseConfig(item gjson.Result) (store.Config, error) {
	key := item.Get("key").String()
	if key == "" {
		return store.Config{}, fmt.Errorf("config entry missing key: %s", item.Raw)
	}

	return store.Config{
		Key:      key,
		Version:  int(item.Get("version").Int()),
		Variants: normalizeVariants(item.Get("variants")),
	}, nil
}

// normalizeVariants converts a variant collection into an ordered list.
// Remote payloads carry variants either as a JSON array or as an object
// keyed by variant name; both shapes normalize here, once, so nothing
// downstream branches on shape. Object iteration follows document order,
// which is stable per published config version.
func normalizeVariants(value gjson.Result) []store.Variant {
	var variants []store.Variant

	switch {
	case value.IsArray():
		value.ForEach(func(_, item gjson.Result) bool {
			variants = append(variants, variantFromObject(item.Get("name").String(), item))
			return true
		})
	case value.IsObject():
		value.ForEach(func(name, item gjson.Result) bool {
			if item.Type == gjson.Number {
				// Shorthand shape: {"variant-name": weight}
				variants = append(variants, store.Variant{
					Name:   name.String(),
					Weight: item.Float(),
				})
				return true
			}
			variants = append(variants, variantFromObject(name.String(), item))
			return true
		})
	}

	return variants
}

// variantFromObject reads one variant object, tolerating both snake_case and
// camelCase field names.
func variantFromObject(name string, item gjson.Result) store.Variant {
	return store.Variant{
		Name:          name,
		PromptKey:     firstString(item, "prompt_key", "promptKey"),
		PromptVersion: int(firstInt(item, "prompt_version", "promptVersion")),
		Weight:        item.Get("weight").Float(),
	}
}

// parsePromptList extracts prompt documents from a bulk response body of the
// shape {"prompts": [{key, version, system, user}, ...]}.
func parsePromptList(raw []byte) ([]store.PromptDocument, error) {
	items := gjson.GetBytes(raw, "prompts")
	if !items.Exists() {
		return nil, nil
	}

	prompts := make([]store.PromptDocument, 0, int(items.Get("#").Int()))
	items.ForEach(func(_, item gjson.Result) bool {
		prompts = append(prompts, parsePrompt(item))
		return true
	})
	return prompts, nil
}

// parsePrompt builds one store.PromptDocument from a JSON object.
func parsePrompt(item gjson.Result) store.PromptDocument {
	return store.PromptDocument{
		Key:            item.Get("key").String(),
		Version:        int(item.Get("version").Int()),
		SystemTemplate: firstString(item, "system", "system_template", "systemTemplate"),
		UserTemplate:   firstString(item, "user", "user_template", "userTemplate"),
	}
}

// firstString returns the first existing string field among the given paths.
func firstString(item gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() {
			return v.String()
		}
	}
	return ""
}

// firstInt returns the first existing integer field among the given paths.
func firstInt(item gjson.Result, paths ...string) int64 {
	for _, p := range paths {
		if v := item.Get(p); v.Exists() {
			return v.Int()
		}
	}
	return 0
}
