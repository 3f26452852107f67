// pkg/pfsense/rules.go

// Package pfsense turns the filter rules of a pfSense config.xml into a
// YAML listing grouped by interface.
package pfsense

import (
	"bytes"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

const unnamedRule = "UnnamedRule"

type configXML struct {
	Hostname   string        `xml:"system>hostname"`
	Domain     string        `xml:"system>domain"`
	Interfaces interfacesXML `xml:"interfaces"`
	Rules      []ruleXML     `xml:"filter>rule"`
}

type interfacesXML struct {
	Items []interfaceXML `xml:",any"`
}

type interfaceXML struct {
	XMLName xml.Name
	Descr   *string `xml:"descr"`
}

type ruleXML struct {
	Type        *string      `xml:"type"`
	Interface   string       `xml:"interface"`
	Protocol    *string      `xml:"protocol"`
	Descr       *string      `xml:"descr"`
	Source      *endpointXML `xml:"source"`
	Destination *endpointXML `xml:"destination"`
}

type endpointXML struct {
	Address *string `xml:"address"`
	Network *string `xml:"network"`
	Port    *string `xml:"port"`
}

// Rule is one filter rule as written to YAML. Empty fields are omitted.
type Rule struct {
	Name            string `yaml:"name,omitempty"`
	Source          string `yaml:"source,omitempty"`
	Destination     string `yaml:"destination,omitempty"`
	DestinationPort any    `yaml:"destination_port,omitempty"`
	Protocol        string `yaml:"protocol,omitempty"`
	Action          string `yaml:"action,omitempty"`
}

// InterfaceRules holds the rules of one interface in config order
type InterfaceRules struct {
	Interface string
	Rules     []Rule
}

// Ruleset is the translated firewall configuration
type Ruleset struct {
	Hostname   string
	Domain     string
	Interfaces []InterfaceRules
}

// Options controls which rules are translated
type Options struct {
	// IncludeAutomated keeps rules whose description starts with "(M)"
	IncludeAutomated bool
}

// Parse reads a pfSense config.xml
func Parse(r io.Reader, opts Options) (*Ruleset, error) {
	var cfg configXML
	if err := xml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decoding pfSense configuration")
	}

	descriptions := make(map[string]string)
	for _, intf := range cfg.Interfaces.Items {
		if intf.Descr != nil {
			descriptions[intf.XMLName.Local] = strings.TrimSpace(*intf.Descr)
		}
	}

	rs := &Ruleset{
		Hostname: strings.TrimSpace(cfg.Hostname),
		Domain:   strings.TrimSpace(cfg.Domain),
	}
	index := make(map[string]int)

	for _, rule := range cfg.Rules {
		name := ruleName(rule)
		// pfBlockerNG rules are always generated
		if strings.HasPrefix(name, "pfB") {
			continue
		}
		if !opts.IncludeAutomated && strings.HasPrefix(name, "(M)") {
			continue
		}

		interfaceTag := strings.TrimSpace(rule.Interface)
		interfaceName := interfaceTag
		if d, ok := descriptions[interfaceTag]; ok {
			interfaceName = d
		}

		out := Rule{
			Name:        name,
			Source:      endpointText(rule.Source, interfaceTag, descriptions),
			Destination: endpointText(rule.Destination, interfaceTag, descriptions),
			Protocol:    trimmed(rule.Protocol),
			Action:      trimmed(rule.Type),
		}
		if rule.Destination != nil {
			port := trimmed(rule.Destination.Port)
			if n, err := strconv.Atoi(port); err == nil && isDigits(port) {
				out.DestinationPort = n
			} else if port != "" {
				out.DestinationPort = port
			}
		}

		i, ok := index[interfaceName]
		if !ok {
			i = len(rs.Interfaces)
			index[interfaceName] = i
			rs.Interfaces = append(rs.Interfaces, InterfaceRules{Interface: interfaceName})
		}
		rs.Interfaces[i].Rules = append(rs.Interfaces[i].Rules, out)
	}

	return rs, nil
}

// YAML renders the ruleset keyed by interface name, in first-seen order
func (rs *Ruleset) YAML() ([]byte, error) {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, intf := range rs.Interfaces {
		value := &yaml.Node{}
		if err := value.Encode(intf.Rules); err != nil {
			return nil, errors.Wrapf(err, "encoding rules of %s", intf.Interface)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: intf.Interface},
			value)
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, errors.Wrap(err, "encoding YAML")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "encoding YAML")
	}
	return buf.Bytes(), nil
}

func ruleName(rule ruleXML) string {
	if name := trimmed(rule.Descr); name != "" {
		return name
	}
	return unnamedRule
}

// endpointText describes a rule source or destination: an explicit address,
// a network relative to the rule's interface, or Any
func endpointText(ep *endpointXML, interfaceTag string, descriptions map[string]string) string {
	if ep == nil {
		return "Any"
	}
	if ep.Address != nil {
		return strings.TrimSpace(*ep.Address)
	}
	if ep.Network != nil {
		network := strings.TrimSpace(*ep.Network)
		switch {
		case network == interfaceTag:
			return "NET"
		case network == "(self)":
			return "(self)"
		}
		if d, ok := descriptions[network]; ok {
			return "NET: " + d
		}
		return "NET: " + network
	}
	return "Any"
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
