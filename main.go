package main

import (
	"bankclient/cmd"
)

func main() {
	cmd.RegisterCommands(
		cmd.NewRegisterCommand(),
		cmd.NewLoginCommand(),
		cmd.NewLogoutCommand(),
		cmd.NewBalanceCommand(),
		cmd.NewDepositCommand(),
		cmd.NewSendCommand(),
		cmd.NewSyncCommand(),
		cmd.NewHistoryCommand(),
		cmd.NewUsersCommand(),
		cmd.NewUpdateUserCommand(),
		cmd.NewDeleteUserCommand(),
		cmd.NewWatchCommand(),
		cmd.NewRelayCommand(),
		cmd.NewActivityConsumerCommand(),
	)

	cmd.Execute()
}
