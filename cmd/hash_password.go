/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/gatekeep/authserver/config"
	"github.com/gatekeep/authserver/internal/store"
	"github.com/spf13/cobra"
)

var hashPasswordCost int

// hashPasswordCmd reads one password from stdin and prints its bcrypt hash,
// for seeding accounts by hand.
var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a password read from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return errors.New("password is empty")
		}

		cost := hashPasswordCost
		if cost == 0 {
			cost = config.LoadConfig().Security.BcryptCost
		}
		hasher, err := store.NewBcryptHasher(cost)
		if err != nil {
			return err
		}
		hash, err := hasher.Hash(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
	hashPasswordCmd.Flags().IntVar(&hashPasswordCost, "cost", 0, "bcrypt cost (defaults to BCRYPT_COST)")
}
