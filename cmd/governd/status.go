package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noddao/governd/api"
)

type statusArguments struct {
	Url      string
	Proposal string
	Phase    uint64
	Page     int
	PageSize int
}

var statusArgs statusArguments

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show chain info, or proposals when --proposal or --phase is set",
	Long:  ``,
	Run:   statusRun,
}

func init() {
	urlFlag(statusCmd, &statusArgs.Url)
	statusCmd.Flags().StringVarP(&statusArgs.Proposal, "proposal", "p", "", "proposal id, hex")
	statusCmd.Flags().Uint64Var(&statusArgs.Phase, "phase", 0, "filter proposals by phase, 1=DRAFT..5=EXECUTED")
	statusCmd.Flags().IntVar(&statusArgs.Page, "page", 0, "page")
	statusCmd.Flags().IntVar(&statusArgs.PageSize, "pageSize", 20, "page size")
}

func statusRun(cmd *cobra.Command, args []string) {
	cli := api.NewClient(statusArgs.Url)

	if statusArgs.Proposal == "" && statusArgs.Phase == 0 {
		info, err := cli.ChainInfo()
		if err != nil {
			fmt.Printf("get chain info err:%v\n", err)
			return
		}
		printJSON(info)
		return
	}

	res, err := cli.GetProposals(api.GetProposalsReq{
		Id:       statusArgs.Proposal,
		Phase:    statusArgs.Phase,
		Page:     statusArgs.Page,
		PageSize: statusArgs.PageSize,
	})
	if err != nil {
		fmt.Printf("get proposals err:%v\n", err)
		return
	}
	printJSON(res)

	if statusArgs.Proposal != "" {
		votes, err := cli.GetVotes(statusArgs.Proposal)
		if err != nil {
			fmt.Printf("get votes err:%v\n", err)
			return
		}
		printJSON(votes)
	}
}

type tallyArguments struct {
	Url      string
	Proposal string
}

var tallyArgs tallyArguments

var tallyCmd = &cobra.Command{
	Use:   "tally",
	Short: "Preview the running tally of an active proposal",
	Long:  ``,
	Run:   tallyRun,
}

func init() {
	urlFlag(tallyCmd, &tallyArgs.Url)
	tallyCmd.Flags().StringVarP(&tallyArgs.Proposal, "proposal", "p", "", "proposal id, hex")
}

func tallyRun(cmd *cobra.Command, args []string) {
	cli := api.NewClient(tallyArgs.Url)
	res, err := cli.GetTally(tallyArgs.Proposal)
	if err != nil {
		fmt.Printf("get tally err:%v\n", err)
		return
	}
	printJSON(res)
}

func printJSON(v any) {
	dat, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("marshal err:%v\n", err)
		return
	}
	fmt.Println(string(dat))
}
