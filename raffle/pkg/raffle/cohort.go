package raffle

// Partition splits accounts into whitelisted and general depositors. Both
// outputs keep the input order.
func Partition(accounts []Account, whitelist []string) (privileged, general []Account) {
	members := membership(whitelist)
	for _, a := range accounts {
		if _, ok := members[a.User]; ok {
			privileged = append(privileged, a)
		} else {
			general = append(general, a)
		}
	}
	return privileged, general
}

func membership(whitelist []string) map[string]struct{} {
	members := make(map[string]struct{}, len(whitelist))
	for _, id := range whitelist {
		members[id] = struct{}{}
	}
	return members
}
