package model

// Principal — администратор, выполнивший вход в портал.
type Principal struct {
	// Username — UPN, под которым выполнен bind
	Username string
	// DisplayName — отображаемое имя из каталога (или Username)
	DisplayName string
	// IsAdmin — член группы администраторов портала
	IsAdmin bool
}
