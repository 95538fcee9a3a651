package domain

// Resource describes a single identity or API resource that a scope name
// resolves to, with the display hints the consent screen needs.
type Resource struct {
	Name        string `bson:"_id" json:"name"`
	DisplayName string `bson:"display_name,omitempty" json:"display_name,omitempty"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`
	Required    bool   `bson:"required,omitempty" json:"required,omitempty"`
	Emphasize   bool   `bson:"emphasize,omitempty" json:"emphasize,omitempty"`
}

// ResourceSet is the result of resolving a set of requested scope names
// against the resource registry.
type ResourceSet struct {
	Identity []Resource `json:"identity,omitempty"`
	API      []Resource `json:"api,omitempty"`
}

// Empty reports whether no scope matched any resource.
func (rs *ResourceSet) Empty() bool {
	return rs == nil || (len(rs.Identity) == 0 && len(rs.API) == 0)
}

// RequiredScopes returns the names of all resources marked required.
func (rs *ResourceSet) RequiredScopes() []string {
	if rs == nil {
		return nil
	}
	var names []string
	for _, r := range rs.Identity {
		if r.Required {
			names = append(names, r.Name)
		}
	}
	for _, r := range rs.API {
		if r.Required {
			names = append(names, r.Name)
		}
	}
	return names
}
