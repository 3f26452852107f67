// cmd/inventory.go

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/config"
	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/inventory"
	"gitlab.consulting.redhat.com/ksa/health-check-proxmox/pkg/pveapi"
)

type inventoryOptions struct {
	list      bool
	host      string
	asYAML    bool
	inventory inventory.Options
}

// newInventoryCmd creates the Ansible dynamic inventory subcommand
func newInventoryCmd(root *rootOptions) *cobra.Command {
	opts := &inventoryOptions{inventory: inventory.DefaultOptions()}

	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Print an Ansible dynamic inventory of the cluster",
		Long: `Lists every cluster node, QEMU guest and LXC container as an Ansible
dynamic inventory. Use --list for the whole inventory or --host for the
variables of a single host.

On a cluster node the data comes from pvesh. With --url (or api_url in the
configuration) the Proxmox VE REST API is queried instead, authenticated by
--password or by --token-id and --token-secret.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInventory(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.list, "list", false, "Print the whole inventory (default)")
	f.StringVar(&opts.host, "host", "", "Print the variables of one host")
	f.BoolVar(&opts.asYAML, "yaml", false, "Print YAML instead of JSON")
	f.StringVar(&opts.inventory.GroupPrefix, "group-prefix", opts.inventory.GroupPrefix, "Prefix of generated group names")
	f.StringVar(&opts.inventory.FactsPrefix, "facts-prefix", opts.inventory.FactsPrefix, "Prefix of host variables")
	f.BoolVar(&opts.inventory.WantFacts, "want-facts", opts.inventory.WantFacts, "Add guest records and configuration as host variables")
	f.BoolVar(&opts.inventory.NodeAnsibleHost, "node-ansible-host", opts.inventory.NodeAnsibleHost, "Set ansible_host of nodes from their bridge address")
	f.StringSliceVar(&opts.inventory.Statuses, "status", opts.inventory.Statuses, "Guest states to include, empty for all")
	f.BoolVar(&opts.inventory.StrictHostnames, "strict-hostnames", false, "Keep guest names unsanitized")
	f.String("url", "", "Proxmox VE web API URL, e.g. https://pve.example.lan:8006")
	f.String("user", "", "API user, e.g. ansible@pve")
	f.String("password", "", "API password")
	f.String("token-id", "", "API token name, or full user@realm!name")
	f.String("token-secret", "", "API token secret")
	f.Bool("validate-certs", true, "Verify the API TLS certificate")
	cmd.MarkFlagsMutuallyExclusive("list", "host")

	cmd.AddCommand(newSetAnsibleHostCmd())
	return cmd
}

func runInventory(cmd *cobra.Command, root *rootOptions, opts *inventoryOptions) error {
	cfg, log, err := loadRuntime(cmd, root)
	if err != nil {
		return err
	}
	defer log.Sync()

	src, closeSource, err := newInventorySource(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer closeSource()

	inv, err := inventory.NewBuilder(src, opts.inventory, log).Build()
	if err != nil {
		return errors.Wrap(err, "building inventory")
	}
	log.Debug("Inventory built", zap.Int("groups", len(inv.Groups)), zap.Int("hosts", len(inv.HostVars)))

	var out any = inv
	if opts.host != "" {
		out = inv.Host(opts.host)
	} else if opts.asYAML {
		out = inv.Tree()
	}
	return printStructured(cmd.OutOrStdout(), out, opts.asYAML)
}

// newInventorySource picks the REST API when a URL is configured and pvesh otherwise
func newInventorySource(ctx context.Context, cfg *config.Config, log *zap.Logger) (inventory.Source, func(), error) {
	if cfg.API.URL == "" {
		client, _, err := newClient(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return client, client.Close, nil
	}

	client, err := pveapi.New(ctx, pveapi.Options{
		URL:           cfg.API.URL,
		User:          cfg.API.User,
		Password:      cfg.API.Password,
		TokenID:       cfg.API.TokenID,
		TokenSecret:   cfg.API.TokenSecret,
		ValidateCerts: cfg.API.ValidateCerts,
		Logger:        log,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not connect to Proxmox API")
	}
	if version, err := client.Version(); err != nil {
		log.Warn("Could not read Proxmox version", zap.Error(err))
	} else {
		log.Debug("Connected to Proxmox API", zap.String("url", cfg.API.URL), zap.String("version", version))
	}
	return client, func() {}, nil
}

func printStructured(w io.Writer, v any, asYAML bool) error {
	if asYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "encoding YAML")
		}
		return enc.Close()
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding JSON")
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

// newSetAnsibleHostCmd creates the subcommand patching a static YAML inventory
func newSetAnsibleHostCmd() *cobra.Command {
	var (
		group   string
		inPlace bool
	)

	cmd := &cobra.Command{
		Use:   "set-ansible-host <inventory.yml>",
		Short: "Copy each host's ip variable to ansible_host in a YAML inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.Wrapf(err, "reading %s", path)
			}

			var tree map[string]any
			if err := yaml.Unmarshal(data, &tree); err != nil {
				return errors.Wrapf(err, "parsing %s", path)
			}

			changed := inventory.SetAnsibleHostFromIP(tree, group)
			fmt.Fprintf(cmd.ErrOrStderr(), "Updated %d hosts in group %s\n", changed, group)

			if !inPlace {
				return printStructured(cmd.OutOrStdout(), tree, true)
			}
			out, err := yaml.Marshal(tree)
			if err != nil {
				return errors.Wrap(err, "encoding YAML")
			}
			return errors.Wrapf(os.WriteFile(path, out, 0644), "writing %s", path)
		},
	}

	cmd.Flags().StringVarP(&group, "group", "g", "tailscale", "Parent group whose child groups are patched")
	cmd.Flags().BoolVarP(&inPlace, "in-place", "i", false, "Rewrite the file instead of printing it")
	return cmd
}
