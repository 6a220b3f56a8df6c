package sanitizer

// NormalizeContacts drops entries whose name or phone normalizes to empty.
func NormalizeContacts(contacts map[string]string) map[string]string {
	normalized := map[string]string{}
	for name, phone := range contacts {
		name = NormalizeName(name)
		phone = NormalizePhone(phone)
		if name == "" || phone == "" {
			continue
		}
		normalized[name] = phone
	}
	return normalized
}
