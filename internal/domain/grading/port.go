package grading

// Directory port (lookup tabel profil keamanan)
type Directory interface {
	Lookup(company string) (Profile, bool)
}

// Resolve returns the directory profile or DefaultProfile when absent.
func Resolve(d Directory, company string) Profile {
	if d != nil {
		if p, ok := d.Lookup(company); ok {
			return p
		}
	}
	return DefaultProfile()
}
