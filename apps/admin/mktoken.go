package main

import (
	"fmt"

	echoapi "github.com/trezcool/alama/apps/api/echo"
)

// mktoken generates a signed API token for the given account. Teacher access
// is implied; -admin grants the admin portal too.
func (cli *commandLine) mktoken(uname, email string, isAdmin bool) error {
	claims := echoapi.NewClaims(cli.conf, uname, email, true /* isTeacher */, isAdmin)

	token, err := echoapi.GenerateToken(cli.conf, claims)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
