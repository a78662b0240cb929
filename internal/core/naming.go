package core

// NoTemplate is the TemplateID of a route that declares no component.
const NoTemplate = -1

// AssignTemplateIDs numbers components in order of first appearance and
// stamps each route with the index of its component. The returned slice maps
// TemplateID back to the component name.
func AssignTemplateIDs(routes []Route) []string {
	templates := make([]string, 0)
	index := make(map[string]int)

	for i := range routes {
		component := routes[i].Component
		if component == "" {
			routes[i].TemplateID = NoTemplate
			continue
		}
		id, ok := index[component]
		if !ok {
			id = len(templates)
			templates = append(templates, component)
			index[component] = id
		}
		routes[i].TemplateID = id
	}

	return templates
}
