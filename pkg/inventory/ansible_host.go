// pkg/inventory/ansible_host.go

package inventory

// SetAnsibleHostFromIP walks all.children.<group>.children.*.hosts of a
// YAML inventory and copies each host's ip to ansible_host when it has none.
// It returns the number of hosts changed.
func SetAnsibleHostFromIP(tree map[string]any, group string) int {
	parent := lookup(tree, "all", "children", group, "children")
	if parent == nil {
		return 0
	}

	changed := 0
	for _, child := range parent {
		childMap, ok := child.(map[string]any)
		if !ok {
			continue
		}
		hosts, ok := childMap["hosts"].(map[string]any)
		if !ok {
			continue
		}
		for _, h := range hosts {
			vars, ok := h.(map[string]any)
			if !ok {
				continue
			}
			if _, set := vars["ansible_host"]; set {
				continue
			}
			if ip, ok := vars["ip"]; ok {
				vars["ansible_host"] = ip
				changed++
			}
		}
	}
	return changed
}

func lookup(tree map[string]any, path ...string) map[string]any {
	current := tree
	for _, key := range path {
		next, ok := current[key].(map[string]any)
		if !ok {
			return nil
		}
		current = next
	}
	return current
}
