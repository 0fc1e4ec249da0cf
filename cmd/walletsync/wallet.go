package main

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/walletsync/cmd/walletsync/internal/view"
	"github.com/MrJamesThe3rd/walletsync/internal/wallet"
)

func walletCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "wallet",
		Aliases: []string{"w"},
		Short:   "Manage wallets",
	}

	cmd.AddCommand(
		walletCreateCmd(a),
		walletListCmd(a),
		walletUseCmd(a),
		walletDefaultCmd(a),
		walletRenameCmd(a),
		walletDeleteCmd(a),
	)

	return cmd
}

func walletCreateCmd(a *app) *cobra.Command {
	var (
		typ       string
		currency  string
		icon      string
		color     string
		isDefault bool
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a wallet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.walletCtx.CreateWallet(cmd.Context(), &wallet.Wallet{
				Name:      args[0],
				Type:      wallet.Type(typ),
				Currency:  strings.ToUpper(currency),
				Icon:      icon,
				Color:     color,
				IsDefault: isDefault,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created wallet %s (%s)\n", w.Name, w.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", string(wallet.TypePersonal), "personal, business, family or shared")
	cmd.Flags().StringVar(&currency, "currency", "USD", "ISO 4217 currency code")
	cmd.Flags().StringVar(&icon, "icon", "", "icon name")
	cmd.Flags().StringVar(&color, "color", "", "display color")
	cmd.Flags().BoolVar(&isDefault, "default", false, "make this the default wallet")

	return cmd
}

func walletListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List wallets",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st := a.walletCtx.State()
			return view.Wallets(cmd.OutOrStdout(), st.Wallets, st.Current)
		},
	}
}

func walletUseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "use WALLET",
		Short: "Select the wallet other commands operate on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.resolveWallet(args[0])
			if err != nil {
				return err
			}

			return a.walletCtx.SwitchWallet(cmd.Context(), w.ID)
		},
	}
}

func walletDefaultCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "default WALLET",
		Short: "Mark a wallet as the default",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.resolveWallet(args[0])
			if err != nil {
				return err
			}

			return a.walletCtx.SetDefault(cmd.Context(), w.ID)
		},
	}
}

func walletRenameCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rename WALLET NAME",
		Short: "Rename a wallet",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.resolveWallet(args[0])
			if err != nil {
				return err
			}

			updated := *w
			updated.Name = args[1]

			return a.walletCtx.UpdateWallet(cmd.Context(), &updated)
		},
	}
}

func walletDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "delete WALLET",
		Aliases: []string{"rm"},
		Short:   "Delete a wallet",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := a.resolveWallet(args[0])
			if err != nil {
				return err
			}

			return a.walletCtx.DeleteWallet(cmd.Context(), w.ID)
		},
	}
}

// resolveWallet matches ref against wallet ids, id prefixes and names, in that order.
func (a *app) resolveWallet(ref string) (*wallet.Wallet, error) {
	wallets := a.walletCtx.State().Wallets

	if id, err := uuid.Parse(ref); err == nil {
		for _, w := range wallets {
			if w.ID == id {
				return w, nil
			}
		}

		return nil, fmt.Errorf("%w: %s", wallet.ErrNotFound, ref)
	}

	var matches []*wallet.Wallet

	for _, w := range wallets {
		if strings.HasPrefix(w.ID.String(), ref) || strings.EqualFold(w.Name, ref) {
			matches = append(matches, w)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", wallet.ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%q matches %d wallets", ref, len(matches))
	}
}
