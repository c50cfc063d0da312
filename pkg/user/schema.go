package user

const SDL = `
type User {
  user_id: ID!
  name: String!
  email: String!
  phone: String
  address: String
  password: String
}

input RegisterInput {
  name: String!
  email: String!
  phone: String
  address: String
  password: String!
}

input UpdateUserInput {
  name: String
  email: String
  phone: String
  address: String
  password: String
}

type Query {
  users: [User!]!
  user(id: ID!): User
}

type Mutation {
  createUser(input: RegisterInput!): User!
  updateUser(id: ID!, input: UpdateUserInput!): User!
  deleteUser(id: ID!): Boolean!
}
`
