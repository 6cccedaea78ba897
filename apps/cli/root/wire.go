package root

import (
	assignmentcmd "github.com/evanildobarros/isotek-qms/apps/cli/cmd/assignment"
	authcmd "github.com/evanildobarros/isotek-qms/apps/cli/cmd/auth"
	policycmd "github.com/evanildobarros/isotek-qms/apps/cli/cmd/policy"
)

func init() {
	Root().AddCommand(authcmd.Command())
	Root().AddCommand(assignmentcmd.Command())
	Root().AddCommand(policycmd.Command())
}
