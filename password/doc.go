// Package password implements peppered argon2id hashing, the password
// entropy policy, and the concurrency gate that bounds hashing work.
package password
