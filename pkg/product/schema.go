package product

const SDL = `
type Product {
  product_id: ID!
  name: String!
  description: String
  price: Float!
  stock: Int!
  category_id: ID
  user_id: ID!
  category: Category
  seller: User
}

type Category {
  category_id: ID!
  category_name: String!
}

type User {
  user_id: ID!
  name: String!
  email: String!
}

input ProductInput {
  name: String!
  description: String
  price: Float!
  stock: Int!
  category_id: ID
  user_id: ID!
}

type Query {
  products: [Product!]!
  product(id: ID!): Product
  productsByCategory(categoryId: ID!): [Product!]!
  productsBySeller(userId: ID!): [Product!]!
  categories: [Category!]!
  category(id: ID!): Category
}

type Mutation {
  createProduct(input: ProductInput!): Product!
  updateProduct(id: ID!, input: ProductInput!): Product!
  deleteProduct(id: ID!): Boolean!
  updateStock(id: ID!, stock: Int!): Product!
  decrementStock(id: ID!, quantity: Int!): Product!
  createCategory(categoryName: String!): Category!
}
`

const getSellerQuery = `
      query GetUser($id: ID!) {
        user(id: $id) {
          user_id
          name
          email
        }
      }
    `
